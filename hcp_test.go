package hcp

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
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

type fixture struct {
	fake    *testutil.FakeS3
	fs      billy.Filesystem
	manager *Manager
}

func newFixture(t *testing.T, opts ...s3types.Option) *fixture {
	t.Helper()
	f := &fixture{fake: testutil.NewFakeS3(testBucket), fs: memfs.New()}
	opts = append([]s3types.Option{WithFilesystem(f.fs), WithPartSize(testPartSize)}, opts...)
	m, err := NewWithClient(f.fake, opts...)
	require.NoError(t, err)
	require.NoError(t, m.AttachBucket(context.Background(), testBucket))
	f.manager = m
	return f
}

// TestManager_Lifecycle walks a file through upload, search, verification,
// download and deletion.
func TestManager_Lifecycle(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantParts int
	}{
		{name: "simple", size: 1000, wantParts: 1},
		{name: "multipart", size: 3*testPartSize + 123, wantParts: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			data := testutil.GenerateRandomData(tt.size)
			testutil.WriteFile(t, f.fs, "data/test_reads_R1.fasterq", data)
			key := "unittest/test_reads_R1.fasterq"

			result, err := f.manager.UploadFile(ctx, "data/test_reads_R1.fasterq", key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantParts, result.Parts)

			found, err := f.manager.SearchObjects(ctx, "unittest/")
			require.NoError(t, err)
			require.NotEmpty(t, found)
			assert.Equal(t, key, found[0].Key)

			obj, err := f.manager.GetObject(ctx, key)
			require.NoError(t, err)
			require.NotNil(t, obj)
			assert.Equal(t, int64(tt.size), obj.Size)
			assert.Equal(t, result.ETag, obj.ETag)

			calculated, err := f.manager.Verifier().Fingerprint("data/test_reads_R1.fasterq")
			require.NoError(t, err)
			assert.Equal(t, obj.ETag, calculated)
			if tt.wantParts > 1 {
				assert.True(t, etag.IsComposite(obj.ETag))
			}

			ok, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), "data/test_reads_R1.fasterq", key)
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = f.manager.DownloadFile(ctx, obj, "downloads/test_reads_R1.fasterq")
			require.NoError(t, err)
			assert.Equal(t, data, testutil.ReadFile(t, f.fs, "downloads/test_reads_R1.fasterq"))

			require.NoError(t, f.manager.DeleteObject(ctx, obj))
			gone, err := f.manager.GetObject(ctx, key)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})
	}
}

func TestManager_DefaultPartSizeBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithPartSize(s3types.DefaultPartSize))

	tests := []struct {
		name   string
		size   int
		suffix bool
	}{
		{name: "exactly 8 MiB", size: int(s3types.DefaultPartSize)},
		{name: "8 MiB plus one byte", size: int(s3types.DefaultPartSize) + 1, suffix: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.WriteFile(t, f.fs, "big.bin", testutil.GenerateRandomData(tt.size))

			result, err := f.manager.UploadFile(ctx, "big.bin", "big.bin")
			require.NoError(t, err)

			if tt.suffix {
				assert.Equal(t, 2, result.Parts)
				assert.Regexp(t, `^[0-9a-f]{32}-2$`, result.ETag)
			} else {
				assert.Equal(t, 1, result.Parts)
				assert.Regexp(t, `^[0-9a-f]{32}$`, result.ETag)
			}

			ok, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), "big.bin", "big.bin")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestVerifyObject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	data := testutil.GenerateRandomData(2*testPartSize + 1)
	testutil.WriteFile(t, f.fs, "reads.fq", data)
	_, err := f.manager.UploadFile(ctx, "reads.fq", "reads.fq")
	require.NoError(t, err)

	t.Run("tampered local copy", func(t *testing.T) {
		tampered := append([]byte(nil), data...)
		tampered[testPartSize+10] ^= 0x01
		testutil.WriteFile(t, f.fs, "tampered.fq", tampered)

		ok, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), "tampered.fq", "reads.fq")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different part size", func(t *testing.T) {
		v, err := etag.New(etag.WithFilesystem(f.fs), etag.WithPartSize(testPartSize*4))
		require.NoError(t, err)

		ok, err := VerifyObject(ctx, f.manager, v, "reads.fq", "reads.fq")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), "reads.fq", "absent.fq")
		assert.True(t, hcperrors.IsNotFound(err))
	})

	t.Run("missing local file", func(t *testing.T) {
		_, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), "absent.fq", "reads.fq")
		assert.True(t, hcperrors.IsNotFound(err))
	})

	t.Run("nil arguments", func(t *testing.T) {
		_, err := VerifyObject(ctx, nil, f.manager.Verifier(), "reads.fq", "reads.fq")
		assert.True(t, hcperrors.IsInvalidInput(err))
	})
}

func TestManager_AttachBucket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.manager.AttachBucket(ctx, "absent-bucket")
	assert.True(t, hcperrors.IsNotFound(err))
	assert.Equal(t, testBucket, f.manager.Bucket(), "failed attach must keep the previous bucket")

	err = f.manager.AttachBucket(ctx, "Bad_Name")
	assert.True(t, hcperrors.IsInvalidInput(err))
	assert.Equal(t, 2, f.fake.Calls("HeadBucket"), "invalid names must not reach the store")

	f.fake.Fail("HeadBucket", testutil.APIError("AccessDenied", "Access Denied"))
	err = f.manager.AttachBucket(ctx, testBucket)
	assert.True(t, hcperrors.IsAccessDenied(err))
}

func TestManager_RequiresBucket(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	testutil.WriteFile(t, fs, "a.txt", []byte("a"))
	m, err := NewWithClient(testutil.NewFakeS3(testBucket), WithFilesystem(fs))
	require.NoError(t, err)
	obj := &s3types.Object{Key: "a.txt"}

	_, uploadErr := m.UploadFile(ctx, "a.txt", "a.txt")
	_, getErr := m.GetObject(ctx, "a.txt")
	_, downloadErr := m.DownloadFile(ctx, obj, "b.txt")
	deleteErr := m.DeleteObject(ctx, obj)
	_, searchErr := m.SearchObjects(ctx, "")

	for _, err := range []error{uploadErr, getErr, downloadErr, deleteErr, searchErr} {
		assert.ErrorIs(t, err, hcperrors.ErrNoBucket)
		assert.True(t, hcperrors.IsInvalidInput(err))
	}
}

func TestManager_MissingArguments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFile(t, f.fs, "a.txt", []byte("a"))

	_, err := f.manager.UploadFile(ctx, "", "")
	assert.True(t, hcperrors.IsInvalidInput(err))
	_, err = f.manager.UploadFile(ctx, "a.txt", "")
	assert.True(t, hcperrors.IsInvalidInput(err))
	_, err = f.manager.GetObject(ctx, "")
	assert.True(t, hcperrors.IsInvalidInput(err))
	_, err = f.manager.DownloadFile(ctx, nil, "out")
	assert.True(t, hcperrors.IsInvalidInput(err))
	_, err = f.manager.DownloadFile(ctx, &s3types.Object{Key: "a.txt"}, "")
	assert.True(t, hcperrors.IsInvalidInput(err))
	assert.True(t, hcperrors.IsInvalidInput(f.manager.DeleteObject(ctx, nil)))

	assert.Zero(t, f.fake.Calls("PutObject"))
	assert.Zero(t, f.fake.Calls("HeadObject"))
	assert.Zero(t, f.fake.Calls("GetObject"))
	assert.Zero(t, f.fake.Calls("DeleteObject"))
}

func TestManager_UploadFile_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.UploadFile(ctx, "absent.fq", "k")
		assert.True(t, hcperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "absent.fq")
	})

	t.Run("directory", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.fs.MkdirAll("dir", 0o755))
		_, err := f.manager.UploadFile(ctx, "dir", "k")
		assert.True(t, hcperrors.IsInvalidInput(err))
	})

	t.Run("too many parts", func(t *testing.T) {
		f := newFixture(t, WithPartSize(1))
		testutil.WriteFile(t, f.fs, "a.bin", make([]byte, maxParts+1))
		_, err := f.manager.UploadFile(ctx, "a.bin", "k")
		assert.True(t, hcperrors.IsInvalidInput(err))
		assert.Contains(t, err.Error(), "increase the part size")
		assert.Zero(t, f.fake.Calls("CreateMultipartUpload"))
	})

	t.Run("reserved metadata", func(t *testing.T) {
		f := newFixture(t)
		testutil.WriteFile(t, f.fs, "a.txt", []byte("a"))
		_, err := f.manager.UploadFile(ctx, "a.txt", "k", WithMetadata(map[string]string{"x-amz-acl": "x"}))
		assert.True(t, hcperrors.IsInvalidInput(err))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		testutil.WriteFile(t, f.fs, "a.txt", []byte("a"))
		f.fake.Fail("PutObject", testutil.APIError("AccessDenied", "Access Denied"))
		_, err := f.manager.UploadFile(ctx, "a.txt", "k")
		assert.True(t, hcperrors.IsAccessDenied(err))
	})
}

func TestManager_UploadFile_ContentType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.WriteFile(t, f.fs, "notes.txt", []byte("plain text notes\n"))

	_, err := f.manager.UploadFile(ctx, "notes.txt", "detected")
	require.NoError(t, err)
	_, err = f.manager.UploadFile(ctx, "notes.txt", "explicit", WithContentType("application/x-fastq"))
	require.NoError(t, err)

	detected, err := f.manager.GetObject(ctx, "detected")
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", detected.ContentType)

	explicit, err := f.manager.GetObject(ctx, "explicit")
	require.NoError(t, err)
	assert.Equal(t, "application/x-fastq", explicit.ContentType)
}

func TestManager_UploadFile_Progress(t *testing.T) {
	f := newFixture(t)
	data := testutil.GenerateRandomData(2*testPartSize + 5)
	testutil.WriteFile(t, f.fs, "a.bin", data)
	tracker := &testutil.MockProgressTracker{}

	_, err := f.manager.UploadFile(context.Background(), "a.bin", "a.bin", WithProgress(tracker))
	require.NoError(t, err)

	assert.True(t, tracker.CompleteCalled)
	assert.Equal(t, int64(len(data)), tracker.BytesTransferred)
	assert.Len(t, tracker.Updates, 3)
}

func TestManager_GetObject_Errors(t *testing.T) {
	ctx := context.Background()
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, testutil.APIError("AccessDenied", "Access Denied")
		},
	}
	m, err := NewWithClient(mock)
	require.NoError(t, err)
	require.NoError(t, m.AttachBucket(ctx, testBucket))

	obj, err := m.GetObject(ctx, "k")
	assert.Nil(t, obj)
	assert.True(t, hcperrors.IsAccessDenied(err), "only a missing object yields nil without error")

	mock.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	_, err = m.GetObject(ctx, "k")
	assert.Equal(t, hcperrors.CodeUnknown, hcperrors.CodeOf(err))
}

func TestManager_DownloadFile_MissingObject(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.DownloadFile(context.Background(), &s3types.Object{Key: "absent"}, "out")
	assert.True(t, hcperrors.IsNotFound(err))
	_, statErr := f.fs.Stat("out")
	assert.Error(t, statErr)
}

func TestManager_SearchObjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, key := range []string{"unittest/b", "unittest/a", "other/c"} {
		f.fake.PutContent(testBucket, key, []byte(key))
	}

	found, err := f.manager.SearchObjects(ctx, "unittest/")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "unittest/a", found[0].Key)
	assert.Equal(t, "unittest/b", found[1].Key)

	none, err := f.manager.SearchObjects(ctx, "nothing/")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.manager.SearchObjects(ctx, "bad\x00prefix")
	assert.True(t, hcperrors.IsInvalidInput(err))
}

func TestManager_ConcurrentUploads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithConcurrency(3))
	keys := []string{"a", "b", "c", "d"}
	for i, key := range keys {
		testutil.WriteFile(t, f.fs, key, testutil.GenerateRandomData((i+1)*testPartSize+i))
	}

	errs := make(chan error, len(keys))
	for _, key := range keys {
		go func() {
			_, err := f.manager.UploadFile(ctx, key, key)
			errs <- err
		}()
	}
	for range keys {
		require.NoError(t, <-errs)
	}

	for _, key := range keys {
		ok, err := VerifyObject(ctx, f.manager, f.manager.Verifier(), key, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
}
