package upload

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/awserr"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// sniffLen is how much of a file is read for content type detection.
const sniffLen = 3072

// Uploader handles uploads with automatic multipart selection.
type Uploader struct {
	s3Client    s3api.S3API
	partSize    int64
	concurrency int
	logger      zerolog.Logger
}

// New creates an Uploader. partSize is both the multipart threshold and the
// part size; concurrency bounds in-flight parts.
func New(s3Client s3api.S3API, partSize int64, concurrency int, logger zerolog.Logger) *Uploader {
	if partSize <= 0 {
		partSize = s3types.DefaultPartSize
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Uploader{
		s3Client:    s3Client,
		partSize:    partSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Upload uploads size bytes read from r to bucket/key.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	r io.ReaderAt,
	size int64,
	config *s3types.UploadOptionConfig,
	startTime time.Time,
) (*s3types.UploadResult, error) {
	var (
		result *s3types.UploadResult
		err    error
	)
	if size <= u.partSize {
		result, err = u.uploadSimple(ctx, bucket, key, r, size, config)
	} else {
		result, err = u.uploadMultipart(ctx, bucket, key, r, size, config)
	}
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

func (u *Uploader) uploadSimple(
	ctx context.Context,
	bucket, key string,
	r io.ReaderAt,
	size int64,
	config *s3types.UploadOptionConfig,
) (*s3types.UploadResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          io.NewSectionReader(r, 0, size),
		ContentLength: aws.Int64(size),
	}
	if config.ContentType != "" {
		input.ContentType = aws.String(config.ContentType)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, awserr.Wrap("uploadSimple", err).WithBucket(bucket).WithKey(key)
	}

	if config.ProgressTracker != nil {
		config.ProgressTracker.Update(size, size)
	}
	return &s3types.UploadResult{
		Key:       key,
		Size:      size,
		ETag:      etag.Normalize(aws.ToString(output.ETag)),
		Parts:     1,
		VersionID: aws.ToString(output.VersionId),
	}, nil
}

func (u *Uploader) uploadMultipart(
	ctx context.Context,
	bucket, key string,
	r io.ReaderAt,
	size int64,
	config *s3types.UploadOptionConfig,
) (*s3types.UploadResult, error) {
	createInput := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if config.ContentType != "" {
		createInput.ContentType = aws.String(config.ContentType)
	}
	if len(config.Metadata) > 0 {
		createInput.Metadata = config.Metadata
	}

	createOutput, err := u.s3Client.CreateMultipartUpload(ctx, createInput)
	if err != nil {
		return nil, awserr.Wrap("createMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}
	uploadID := aws.ToString(createOutput.UploadId)

	numParts := etag.PartCount(size, u.partSize)
	u.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("upload_id", uploadID).
		Int("parts", numParts).
		Msg("starting multipart upload")

	parts, err := u.uploadParts(ctx, bucket, key, uploadID, r, size, numParts, config.ProgressTracker)
	if err != nil {
		u.abortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, err
	}

	completeOutput, err := u.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		u.abortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, awserr.Wrap("completeMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}

	return &s3types.UploadResult{
		Key:       key,
		Size:      size,
		ETag:      etag.Normalize(aws.ToString(completeOutput.ETag)),
		Parts:     numParts,
		VersionID: aws.ToString(completeOutput.VersionId),
	}, nil
}

// uploadParts uploads every part and returns them ordered by part number.
func (u *Uploader) uploadParts(
	ctx context.Context,
	bucket, key, uploadID string,
	r io.ReaderAt,
	size int64,
	numParts int,
	tracker s3types.ProgressTracker,
) ([]awstypes.CompletedPart, error) {
	parts := make([]awstypes.CompletedPart, numParts)
	var transferred atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i := 0; i < numParts; i++ {
		offset := int64(i) * u.partSize
		length := min(u.partSize, size-offset)
		partNumber := int32(i + 1)

		g.Go(func() error {
			output, err := u.s3Client.UploadPart(gctx, &s3.UploadPartInput{
				Bucket:        aws.String(bucket),
				Key:           aws.String(key),
				UploadId:      aws.String(uploadID),
				PartNumber:    aws.Int32(partNumber),
				Body:          io.NewSectionReader(r, offset, length),
				ContentLength: aws.Int64(length),
			})
			if err != nil {
				return awserr.Wrap("uploadPart", err).WithBucket(bucket).WithKey(key)
			}
			parts[partNumber-1] = awstypes.CompletedPart{
				ETag:       output.ETag,
				PartNumber: aws.Int32(partNumber),
			}
			done := transferred.Add(length)
			if tracker != nil {
				tracker.Update(done, size)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// abortMultipartUpload cleans up a failed multipart upload. It runs even if
// ctx was cancelled.
func (u *Uploader) abortMultipartUpload(ctx context.Context, bucket, key, uploadID string) {
	_, err := u.s3Client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		u.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("failed to abort multipart upload")
	}
}

// DetectContentType sniffs the content type of the first bytes of r,
// falling back to the extension of name when the content is not
// recognised.
func DetectContentType(r io.ReaderAt, size int64, name string) string {
	buf := make([]byte, min(size, sniffLen))
	n, _ := r.ReadAt(buf, 0)
	if n > 0 {
		mt := mimetype.Detect(buf[:n])
		if !mt.Is("application/octet-stream") {
			return mt.String()
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
