package etag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, emptyMD5, Normalize(`"`+emptyMD5+`"`))
	assert.Equal(t, "abcd-2", Normalize(` W/"ABCD-2" `))
	assert.Equal(t, "", Normalize(`""`))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		etag       string
		wantDigest string
		wantParts  int
		wantErr    bool
	}{
		{name: "simple", etag: emptyMD5, wantDigest: emptyMD5},
		{name: "quoted composite", etag: `"` + emptyMD5 + `-12"`, wantDigest: emptyMD5, wantParts: 12},
		{name: "empty", etag: "", wantErr: true},
		{name: "not hex", etag: "zzzz", wantErr: true},
		{name: "odd length", etag: "abc", wantErr: true},
		{name: "zero parts", etag: emptyMD5 + "-0", wantErr: true},
		{name: "garbage parts", etag: emptyMD5 + "-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, parts, err := Parse(tt.etag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, hcperrors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDigest, digest)
			assert.Equal(t, tt.wantParts, parts)
		})
	}
}

func TestPartCount(t *testing.T) {
	const mib = 1024 * 1024
	tests := []struct {
		size, partSize int64
		want           int
	}{
		{size: 0, partSize: 8 * mib, want: 1},
		{size: 8 * mib, partSize: 8 * mib, want: 1},
		{size: 8*mib + 1, partSize: 8 * mib, want: 2},
		{size: 24 * mib, partSize: 8 * mib, want: 3},
		{size: 24*mib + 5, partSize: 8 * mib, want: 4},
		{size: 10, partSize: 0, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PartCount(tt.size, tt.partSize), "size=%d partSize=%d", tt.size, tt.partSize)
	}
}

func TestIsComposite(t *testing.T) {
	assert.False(t, IsComposite(emptyMD5))
	assert.True(t, IsComposite(`"`+emptyMD5+`-3"`))
	assert.False(t, IsComposite("not-an-etag"))
}
