package hcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/awserr"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// maxParts is the most parts a multipart upload may have.
const maxParts = 10000

// AttachBucket selects the bucket later operations act on. The bucket must
// exist; a missing bucket fails with a not-found error and leaves the
// previously attached bucket in place.
func (m *Manager) AttachBucket(ctx context.Context, name string) error {
	if err := validation.ValidateBucketName(name); err != nil {
		return err
	}

	if _, err := m.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)}); err != nil {
		return awserr.Wrap("attachBucket", err).WithBucket(name)
	}

	m.mu.Lock()
	m.bucket = name
	m.mu.Unlock()

	m.logger.Info().Str("bucket", name).Msg("attached bucket")
	return nil
}

// UploadFile uploads the file at localPath as key in the attached bucket.
// Files larger than the part size are sent as a multipart upload whose
// parts match the verifier's, so the stored ETag can be checked locally.
func (m *Manager) UploadFile(
	ctx context.Context,
	localPath, key string,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	startTime := time.Now()

	if err := validation.ValidateLocalPath(localPath); err != nil {
		return nil, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	bucket, err := m.currentBucket("uploadFile")
	if err != nil {
		return nil, err
	}

	uploadCfg := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(uploadCfg)
	}
	if err := validation.ValidateMetadata(uploadCfg.Metadata); err != nil {
		return nil, err
	}

	info, err := m.fs.Stat(localPath)
	if err != nil {
		return nil, fileError("uploadFile", localPath, err).WithBucket(bucket).WithKey(key)
	}
	if info.IsDir() {
		return nil, hcperrors.InvalidInput("uploadFile", "path is a directory").WithPath(localPath)
	}
	size := info.Size()
	if parts := etag.PartCount(size, m.config.PartSize); parts > maxParts {
		return nil, hcperrors.InvalidInput("uploadFile",
			fmt.Sprintf("file needs %d parts, more than the %d allowed; increase the part size", parts, maxParts)).
			WithPath(localPath)
	}

	file, err := m.fs.Open(localPath)
	if err != nil {
		return nil, fileError("uploadFile", localPath, err).WithBucket(bucket).WithKey(key)
	}
	defer file.Close()

	if uploadCfg.ContentType == "" {
		uploadCfg.ContentType = upload.DetectContentType(file, size, localPath)
	}

	uploader := upload.New(m.s3Client, m.config.PartSize, m.config.Concurrency, m.logger)
	result, err := uploader.Upload(ctx, bucket, key, file, size, uploadCfg, startTime)
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", result.Size).
		Int("parts", result.Parts).
		Str("etag", result.ETag).
		Dur("duration", result.Duration).
		Msg("uploaded file")
	return result, nil
}

// GetObject returns the metadata of key in the attached bucket, or nil and
// no error if the object does not exist.
func (m *Manager) GetObject(ctx context.Context, key string) (*s3types.Object, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	bucket, err := m.currentBucket("getObject")
	if err != nil {
		return nil, err
	}

	output, err := m.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awserr.IsNotFound(err) {
			return nil, nil
		}
		return nil, awserr.Wrap("getObject", err).WithBucket(bucket).WithKey(key)
	}

	return &s3types.Object{
		Key:          key,
		Size:         aws.ToInt64(output.ContentLength),
		ETag:         etag.Normalize(aws.ToString(output.ETag)),
		LastModified: aws.ToTime(output.LastModified),
		StorageClass: string(output.StorageClass),
		ContentType:  aws.ToString(output.ContentType),
	}, nil
}

// DownloadFile writes obj to localPath, replacing any existing file.
func (m *Manager) DownloadFile(
	ctx context.Context,
	obj *s3types.Object,
	localPath string,
	opts ...s3types.DownloadOption,
) (*s3types.DownloadResult, error) {
	startTime := time.Now()

	if obj == nil {
		return nil, hcperrors.InvalidInput("downloadFile", "object cannot be nil")
	}
	if err := validation.ValidateObjectKey(obj.Key); err != nil {
		return nil, err
	}
	if err := validation.ValidateLocalPath(localPath); err != nil {
		return nil, err
	}
	bucket, err := m.currentBucket("downloadFile")
	if err != nil {
		return nil, err
	}

	downloadCfg := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(downloadCfg)
	}

	downloader := download.New(m.s3Client, m.fs, m.logger)
	result, err := downloader.DownloadFile(ctx, bucket, obj.Key, localPath, downloadCfg, startTime)
	if err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("bucket", bucket).
		Str("key", obj.Key).
		Str("path", localPath).
		Int64("size", result.Size).
		Dur("duration", result.Duration).
		Msg("downloaded object")
	return result, nil
}

// DeleteObject removes obj from the attached bucket. Deleting an object that
// no longer exists succeeds.
func (m *Manager) DeleteObject(ctx context.Context, obj *s3types.Object) error {
	if obj == nil {
		return hcperrors.InvalidInput("deleteObject", "object cannot be nil")
	}
	if err := validation.ValidateObjectKey(obj.Key); err != nil {
		return err
	}
	bucket, err := m.currentBucket("deleteObject")
	if err != nil {
		return err
	}

	if _, err := m.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(obj.Key),
	}); err != nil {
		return awserr.Wrap("deleteObject", err).WithBucket(bucket).WithKey(obj.Key)
	}

	m.logger.Debug().Str("bucket", bucket).Str("key", obj.Key).Msg("deleted object")
	return nil
}

// SearchObjects returns every object in the attached bucket whose key
// starts with prefix, in key order.
func (m *Manager) SearchObjects(ctx context.Context, prefix string) ([]s3types.Object, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	bucket, err := m.currentBucket("searchObjects")
	if err != nil {
		return nil, err
	}

	objects, err := list.New(m.s3Client, 0).All(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	m.logger.Debug().Str("bucket", bucket).Str("prefix", prefix).Int("count", len(objects)).Msg("searched objects")
	return objects, nil
}

// fileError classifies a local file error.
func fileError(op, path string, err error) *hcperrors.Error {
	code := hcperrors.CodeUnreadable
	if errors.Is(err, fs.ErrNotExist) {
		code = hcperrors.CodeNotFound
	}
	return hcperrors.NewCode(op, code, err).WithPath(path)
}
