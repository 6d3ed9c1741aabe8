package download

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/awserr"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// Downloader handles S3 download operations onto a filesystem.
type Downloader struct {
	s3Client s3api.S3API
	fs       billy.Filesystem
	logger   zerolog.Logger
}

// New creates a new Downloader writing to fs.
func New(s3Client s3api.S3API, fs billy.Filesystem, logger zerolog.Logger) *Downloader {
	return &Downloader{
		s3Client: s3Client,
		fs:       fs,
		logger:   logger,
	}
}

// DownloadFile downloads bucket/key to path, replacing any existing file.
func (d *Downloader) DownloadFile(
	ctx context.Context,
	bucket, key, path string,
	config *s3types.DownloadOptionConfig,
	startTime time.Time,
) (*s3types.DownloadResult, error) {
	result, err := d.downloadFile(ctx, bucket, key, path, config.ProgressTracker)
	if err != nil {
		if config.ProgressTracker != nil {
			config.ProgressTracker.Error(err)
		}
		return nil, err
	}
	result.Duration = time.Since(startTime)
	if config.ProgressTracker != nil {
		config.ProgressTracker.Complete()
	}
	return result, nil
}

func (d *Downloader) downloadFile(
	ctx context.Context,
	bucket, key, path string,
	tracker s3types.ProgressTracker,
) (*s3types.DownloadResult, error) {
	output, err := d.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, awserr.Wrap("download", err).WithBucket(bucket).WithKey(key)
	}
	defer output.Body.Close()

	size := int64(-1)
	if output.ContentLength != nil {
		size = *output.ContentLength
	}
	written, err := Save(d.fs, path, output.Body, size, tracker, d.logger)
	if err != nil {
		return nil, errors.NewCode("download", awserr.Classify(err), err).WithBucket(bucket).WithKey(key).WithPath(path)
	}

	return &s3types.DownloadResult{
		Key:  key,
		Path: path,
		Size: written,
		ETag: etag.Normalize(aws.ToString(output.ETag)),
	}, nil
}

// Save streams body into path through a uniquely named temporary sibling
// that is renamed into place once complete. size is the expected length,
// or -1 if unknown; a body of any other length is an error. On failure the
// temporary file is removed and path is left untouched.
func Save(
	fs billy.Filesystem,
	path string,
	body io.Reader,
	size int64,
	tracker s3types.ProgressTracker,
	logger zerolog.Logger,
) (int64, error) {
	tmp := tempName(path)
	file, err := fs.Create(tmp)
	if err != nil {
		return 0, err
	}

	if tracker != nil {
		body = &progressReader{reader: body, tracker: tracker, total: size}
	}

	buf := pool.Get(pool.LargeBufferSize)
	written, copyErr := io.CopyBuffer(file, body, buf)
	pool.Put(buf)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		err = copyErr
	case closeErr != nil:
		err = closeErr
	case size >= 0 && written != size:
		err = fmt.Errorf("received %d of %d bytes: %w", written, size, io.ErrUnexpectedEOF)
	default:
		err = fs.Rename(tmp, path)
	}
	if err != nil {
		if rmErr := fs.Remove(tmp); rmErr != nil {
			logger.Warn().Err(rmErr).Str("path", tmp).Msg("failed to remove temporary download")
		}
		return 0, err
	}
	return written, nil
}

// tempName returns a unique sibling of path.
func tempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.part", base, uuid.NewString()))
}

// progressReader wraps an io.Reader to report read progress.
type progressReader struct {
	reader  io.Reader
	tracker s3types.ProgressTracker
	total   int64
	read    int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.tracker.Update(pr.read, pr.total)
	}
	return n, err
}
