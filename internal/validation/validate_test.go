package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr bool
		errMsg  string
	}{
		{name: "valid", bucket: "ngs-test"},
		{name: "valid with dots", bucket: "ngs.test.bucket"},
		{name: "valid starting with digit", bucket: "1000genomes"},
		{name: "empty", bucket: "", wantErr: true, errMsg: "bucket name cannot be empty"},
		{name: "too short", bucket: "ab", wantErr: true, errMsg: "between 3 and 63"},
		{name: "too long", bucket: strings.Repeat("a", 64), wantErr: true, errMsg: "between 3 and 63"},
		{name: "uppercase", bucket: "NGS-test", wantErr: true, errMsg: "lowercase letters"},
		{name: "underscore", bucket: "ngs_test", wantErr: true, errMsg: "lowercase letters"},
		{name: "leading hyphen", bucket: "-ngs", wantErr: true, errMsg: "begin and end"},
		{name: "trailing dot", bucket: "ngs.", wantErr: true, errMsg: "begin and end"},
		{name: "adjacent dots", bucket: "ngs..test", wantErr: true, errMsg: "adjacent"},
		{name: "dot hyphen", bucket: "ngs.-test", wantErr: true, errMsg: "adjacent"},
		{name: "ip address", bucket: "192.168.1.1", wantErr: true, errMsg: "IP address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
		errMsg  string
	}{
		{name: "simple", key: "test_reads_R1.fasterq"},
		{name: "nested", key: "unittest/test_reads_R1.fasterq"},
		{name: "dots inside a name", key: "runs/sample..v2.fastq"},
		{name: "unicode", key: "données/échantillon.txt"},
		{name: "empty", key: "", wantErr: true, errMsg: "object key cannot be empty"},
		{name: "too long", key: strings.Repeat("k", 1025), wantErr: true, errMsg: "1024"},
		{name: "parent segment", key: "unittest/../secret", wantErr: true, errMsg: "path traversal"},
		{name: "leading parent", key: "../secret", wantErr: true, errMsg: "path traversal"},
		{name: "absolute", key: "/etc/passwd", wantErr: true, errMsg: "path traversal"},
		{name: "windows drive", key: `C:\temp\x`, wantErr: true, errMsg: "path traversal"},
		{name: "control character", key: "bad\x00key", wantErr: true, errMsg: "control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix(""))
	assert.NoError(t, ValidatePrefix("unittest/"))
	assert.Error(t, ValidatePrefix("unit\ntest"))
	assert.Error(t, ValidatePrefix(strings.Repeat("p", 1025)))
}

func TestValidateLocalPath(t *testing.T) {
	assert.NoError(t, ValidateLocalPath("reads.fasterq"))
	assert.True(t, errors.IsInvalidInput(ValidateLocalPath("")))
	assert.True(t, errors.IsInvalidInput(ValidateLocalPath("   ")))
}

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		wantErr  bool
	}{
		{name: "nil", metadata: nil},
		{name: "valid", metadata: map[string]string{"sample": "R1", "run": "2024-01"}},
		{name: "empty key", metadata: map[string]string{"": "x"}, wantErr: true},
		{name: "reserved aws prefix", metadata: map[string]string{"x-amz-meta": "x"}, wantErr: true},
		{name: "reserved hcp prefix", metadata: map[string]string{"X-HCP-Retention": "x"}, wantErr: true},
		{name: "space in key", metadata: map[string]string{"sample id": "x"}, wantErr: true},
		{name: "long key", metadata: map[string]string{strings.Repeat("k", 129): "x"}, wantErr: true},
		{name: "long value", metadata: map[string]string{"k": strings.Repeat("v", 2049)}, wantErr: true},
		{name: "control in value", metadata: map[string]string{"k": "a\x01b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.metadata)
			if tt.wantErr {
				assert.True(t, errors.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
