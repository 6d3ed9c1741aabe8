package upload

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

const (
	testBucket   = "ngs-test"
	testPartSize = 5 * 1024
)

func fingerprint(t *testing.T, data []byte, partSize int64) string {
	t.Helper()
	v, err := etag.New(etag.WithPartSize(partSize))
	require.NoError(t, err)
	fp, err := v.FingerprintReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return fp
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantParts int
	}{
		{name: "empty", size: 0, wantParts: 1},
		{name: "small", size: 100, wantParts: 1},
		{name: "exactly one part", size: testPartSize, wantParts: 1},
		{name: "one byte over", size: testPartSize + 1, wantParts: 2},
		{name: "several parts", size: 3*testPartSize + 17, wantParts: 4},
		{name: "whole parts", size: 4 * testPartSize, wantParts: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3(testBucket)
			u := New(fake, testPartSize, 3, zerolog.Nop())
			data := testutil.GenerateRandomData(tt.size)
			tracker := &testutil.MockProgressTracker{}

			result, err := u.Upload(context.Background(), testBucket, "reads.fq", bytes.NewReader(data),
				int64(len(data)), &s3types.UploadOptionConfig{ProgressTracker: tracker}, time.Now())
			require.NoError(t, err)

			assert.Equal(t, "reads.fq", result.Key)
			assert.Equal(t, int64(tt.size), result.Size)
			assert.Equal(t, tt.wantParts, result.Parts)
			assert.Equal(t, fingerprint(t, data, testPartSize), result.ETag)

			stored, ok := fake.Content(testBucket, "reads.fq")
			require.True(t, ok)
			assert.Equal(t, data, stored)

			assert.True(t, tracker.CompleteCalled)
			assert.False(t, tracker.ErrorCalled)
			assert.Equal(t, int64(tt.size), tracker.BytesTransferred)
			if tt.wantParts == 1 {
				assert.Equal(t, 1, fake.Calls("PutObject"))
				assert.Zero(t, fake.Calls("CreateMultipartUpload"))
			} else {
				assert.Zero(t, fake.Calls("PutObject"))
				assert.Equal(t, tt.wantParts, fake.Calls("UploadPart"))
				assert.Len(t, tracker.Updates, tt.wantParts)
			}
		})
	}
}

func TestUploadPassesContentTypeAndMetadata(t *testing.T) {
	var got *s3.PutObjectInput
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = in
			return &s3.PutObjectOutput{ETag: aws.String(`"9dd4e461268c8034f5c8564e155c67a6"`)}, nil
		},
	}
	u := New(mock, testPartSize, 1, zerolog.Nop())

	result, err := u.Upload(context.Background(), testBucket, "k", bytes.NewReader([]byte("x")), 1,
		&s3types.UploadOptionConfig{ContentType: "text/plain", Metadata: map[string]string{"run": "7"}}, time.Now())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "text/plain", *got.ContentType)
	assert.Equal(t, map[string]string{"run": "7"}, got.Metadata)
	assert.Equal(t, int64(1), *got.ContentLength)
	assert.Equal(t, "9dd4e461268c8034f5c8564e155c67a6", result.ETag)
}

func TestUploadMultipartAbortsOnPartFailure(t *testing.T) {
	fake := testutil.NewFakeS3(testBucket)
	fake.PartHook = func(partNumber int32) error {
		if partNumber == 2 {
			return testutil.APIError("AccessDenied", "denied")
		}
		return nil
	}
	u := New(fake, testPartSize, 2, zerolog.Nop())
	data := testutil.GenerateRandomData(3 * testPartSize)
	tracker := &testutil.MockProgressTracker{}

	_, err := u.Upload(context.Background(), testBucket, "big.bin", bytes.NewReader(data), int64(len(data)),
		&s3types.UploadOptionConfig{ProgressTracker: tracker}, time.Now())
	require.Error(t, err)

	assert.True(t, hcperrors.IsAccessDenied(err))
	assert.Len(t, fake.Aborted(), 1)
	assert.Zero(t, fake.PendingUploads())
	assert.True(t, tracker.ErrorCalled)
	assert.False(t, tracker.CompleteCalled)
	_, ok := fake.Content(testBucket, "big.bin")
	assert.False(t, ok)
}

func TestUploadMultipartAbortsOnCompleteFailure(t *testing.T) {
	fake := testutil.NewFakeS3(testBucket)
	fake.Fail("CompleteMultipartUpload", errors.New("connection reset"))
	u := New(fake, testPartSize, 2, zerolog.Nop())
	data := testutil.GenerateRandomData(2*testPartSize + 1)

	_, err := u.Upload(context.Background(), testBucket, "big.bin", bytes.NewReader(data), int64(len(data)),
		&s3types.UploadOptionConfig{}, time.Now())
	require.Error(t, err)

	assert.Equal(t, hcperrors.CodeUnknown, hcperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "completeMultipartUpload")
	assert.Len(t, fake.Aborted(), 1)
}

func TestUploadMissingBucket(t *testing.T) {
	fake := testutil.NewFakeS3()
	u := New(fake, testPartSize, 1, zerolog.Nop())

	_, err := u.Upload(context.Background(), "absent", "k", bytes.NewReader([]byte("x")), 1,
		&s3types.UploadOptionConfig{}, time.Now())
	assert.True(t, hcperrors.IsNotFound(err))
}

func TestUploadRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	fake := testutil.NewFakeS3(testBucket)
	fake.PartHook = func(int32) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	u := New(fake, testPartSize, 2, zerolog.Nop())
	data := testutil.GenerateRandomData(8 * testPartSize)

	_, err := u.Upload(context.Background(), testBucket, "k", bytes.NewReader(data), int64(len(data)),
		&s3types.UploadOptionConfig{}, time.Now())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestNewDefaults(t *testing.T) {
	u := New(testutil.NewFakeS3(), 0, 0, zerolog.Nop())
	assert.Equal(t, s3types.DefaultPartSize, u.partSize)
	assert.Equal(t, 1, u.concurrency)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		file string
		want string
	}{
		{name: "png by content", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), file: "blob", want: "image/png"},
		{name: "text by content", data: []byte("@read1\nACGT\n+\nIIII\n"), file: "reads.fasterq", want: "text/plain; charset=utf-8"},
		{name: "binary falls back to extension", data: []byte{0x00, 0x01, 0x02, 0xff}, file: "x.json", want: "application/json"},
		{name: "unknown binary", data: []byte{0x00, 0x01, 0x02, 0xff}, file: "x.zzz", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectContentType(bytes.NewReader(tt.data), int64(len(tt.data)), tt.file)
			assert.Equal(t, tt.want, got)
		})
	}
}
