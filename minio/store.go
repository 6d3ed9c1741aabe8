package minio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/hcp"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/credentials"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

const (
	// minPartSize is the smallest part size the client library accepts.
	minPartSize = 5 * 1024 * 1024

	maxParts = 10000
)

// Store is a MinIO-client backed hcp.Storage.
type Store struct {
	client   *minio.Client
	config   *s3types.ClientConfig
	fs       billy.Filesystem
	logger   zerolog.Logger
	verifier *etag.Verifier

	mu     sync.RWMutex
	bucket string
}

var _ hcp.Storage = (*Store)(nil)

// New creates a Store for the endpoint in creds. It accepts the same
// options as hcp.New.
func New(creds credentials.Credentials, opts ...s3types.Option) (*Store, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	cfg := s3types.NewClientConfig(opts...)
	if cfg.PartSize < minPartSize {
		return nil, hcperrors.InvalidInput("newStore",
			fmt.Sprintf("part size must be at least %d bytes, got %d", minPartSize, cfg.PartSize))
	}
	if cfg.Concurrency <= 0 {
		return nil, hcperrors.InvalidInput("newStore", fmt.Sprintf("concurrency must be positive, got %d", cfg.Concurrency))
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("")
	}

	endpoint, err := url.Parse(creds.Endpoint)
	if err != nil {
		return nil, hcperrors.InvalidInput("newStore", "endpoint is not a valid URL")
	}
	region := cfg.Region
	if region == "" {
		region = creds.Region
	}
	if region == "" {
		region = s3types.DefaultRegion
	}

	minioOpts := &minio.Options{
		Creds:        miniocreds.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure:       endpoint.Scheme == "https",
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	}
	if cfg.MaxRetries >= 0 {
		minioOpts.MaxRetries = cfg.MaxRetries + 1
	}
	switch {
	case cfg.CustomHTTPClient != nil && cfg.CustomHTTPClient.Transport != nil:
		minioOpts.Transport = cfg.CustomHTTPClient.Transport
	case cfg.Timeout > 0:
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.Timeout
		minioOpts.Transport = transport
	}

	client, err := minio.New(endpoint.Host, minioOpts)
	if err != nil {
		return nil, hcperrors.New("newStore", err)
	}

	verifier, err := etag.New(etag.WithPartSize(cfg.PartSize), etag.WithFilesystem(cfg.Filesystem))
	if err != nil {
		return nil, err
	}

	return &Store{
		client:   client,
		config:   cfg,
		fs:       cfg.Filesystem,
		logger:   cfg.Logger,
		verifier: verifier,
	}, nil
}

// Verifier returns a verifier matching the store's part size.
func (s *Store) Verifier() *etag.Verifier {
	return s.verifier
}

// Bucket returns the attached bucket, or "" if none is attached.
func (s *Store) Bucket() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bucket
}

func (s *Store) currentBucket(op string) (string, error) {
	bucket := s.Bucket()
	if bucket == "" {
		return "", hcperrors.NewCode(op, hcperrors.CodeInvalidInput, hcperrors.ErrNoBucket)
	}
	return bucket, nil
}

// AttachBucket selects an existing bucket for later operations.
func (s *Store) AttachBucket(ctx context.Context, name string) error {
	if err := validation.ValidateBucketName(name); err != nil {
		return err
	}
	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return translateError("attachBucket", err).WithBucket(name)
	}
	if !exists {
		return hcperrors.NewCode("attachBucket", hcperrors.CodeNotFound, hcperrors.ErrNotFound).WithBucket(name)
	}

	s.mu.Lock()
	s.bucket = name
	s.mu.Unlock()

	s.logger.Info().Str("bucket", name).Msg("attached bucket")
	return nil
}

// UploadFile uploads the file at localPath as key.
func (s *Store) UploadFile(
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
	bucket, err := s.currentBucket("uploadFile")
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

	info, err := s.fs.Stat(localPath)
	if err != nil {
		return nil, fileError("uploadFile", localPath, err)
	}
	if info.IsDir() {
		return nil, hcperrors.InvalidInput("uploadFile", "path is a directory").WithPath(localPath)
	}
	size := info.Size()
	if parts := etag.PartCount(size, s.config.PartSize); parts > maxParts {
		return nil, hcperrors.InvalidInput("uploadFile",
			fmt.Sprintf("file needs %d parts, more than the %d allowed; increase the part size", parts, maxParts)).
			WithPath(localPath)
	}

	file, err := s.fs.Open(localPath)
	if err != nil {
		return nil, fileError("uploadFile", localPath, err)
	}
	defer file.Close()

	if uploadCfg.ContentType == "" {
		uploadCfg.ContentType = upload.DetectContentType(file, size, localPath)
	}
	putOpts := minio.PutObjectOptions{
		ContentType:      uploadCfg.ContentType,
		UserMetadata:     uploadCfg.Metadata,
		PartSize:         uint64(s.config.PartSize),
		NumThreads:       uint(s.config.Concurrency),
		DisableMultipart: size <= s.config.PartSize,
	}

	uploaded, err := s.client.PutObject(ctx, bucket, key, file, size, putOpts)
	if err != nil {
		if uploadCfg.ProgressTracker != nil {
			uploadCfg.ProgressTracker.Error(err)
		}
		return nil, translateError("uploadFile", err).WithBucket(bucket).WithKey(key)
	}
	if uploadCfg.ProgressTracker != nil {
		uploadCfg.ProgressTracker.Update(size, size)
		uploadCfg.ProgressTracker.Complete()
	}

	result := &s3types.UploadResult{
		Key:       key,
		Size:      uploaded.Size,
		ETag:      etag.Normalize(uploaded.ETag),
		Parts:     etag.PartCount(size, s.config.PartSize),
		VersionID: uploaded.VersionID,
		Duration:  time.Since(startTime),
	}
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", size).Str("etag", result.ETag).
		Msg("uploaded file")
	return result, nil
}

// GetObject returns the metadata of key, or nil if it does not exist.
func (s *Store) GetObject(ctx context.Context, key string) (*s3types.Object, error) {
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}
	bucket, err := s.currentBucket("getObject")
	if err != nil {
		return nil, err
	}

	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		e := translateError("getObject", err)
		if e.Code == hcperrors.CodeNotFound {
			return nil, nil
		}
		return nil, e.WithBucket(bucket).WithKey(key)
	}
	return convertObject(info), nil
}

// DownloadFile writes obj to localPath, replacing any existing file.
func (s *Store) DownloadFile(
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
	bucket, err := s.currentBucket("downloadFile")
	if err != nil {
		return nil, err
	}
	downloadCfg := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(downloadCfg)
	}

	reader, err := s.client.GetObject(ctx, bucket, obj.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError("downloadFile", err).WithBucket(bucket).WithKey(obj.Key)
	}
	defer reader.Close()

	// GetObject is lazy; Stat surfaces a missing object before any file is created.
	info, err := reader.Stat()
	if err != nil {
		e := translateError("downloadFile", err).WithBucket(bucket).WithKey(obj.Key)
		if downloadCfg.ProgressTracker != nil {
			downloadCfg.ProgressTracker.Error(e)
		}
		return nil, e
	}

	written, err := download.Save(s.fs, localPath, reader, info.Size, downloadCfg.ProgressTracker, s.logger)
	if err != nil {
		e := translateError("downloadFile", err).WithBucket(bucket).WithKey(obj.Key).WithPath(localPath)
		if downloadCfg.ProgressTracker != nil {
			downloadCfg.ProgressTracker.Error(e)
		}
		return nil, e
	}
	if downloadCfg.ProgressTracker != nil {
		downloadCfg.ProgressTracker.Complete()
	}

	return &s3types.DownloadResult{
		Key:      obj.Key,
		Path:     localPath,
		Size:     written,
		ETag:     etag.Normalize(info.ETag),
		Duration: time.Since(startTime),
	}, nil
}

// DeleteObject removes obj from the attached bucket.
func (s *Store) DeleteObject(ctx context.Context, obj *s3types.Object) error {
	if obj == nil {
		return hcperrors.InvalidInput("deleteObject", "object cannot be nil")
	}
	if err := validation.ValidateObjectKey(obj.Key); err != nil {
		return err
	}
	bucket, err := s.currentBucket("deleteObject")
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
		return translateError("deleteObject", err).WithBucket(bucket).WithKey(obj.Key)
	}
	s.logger.Debug().Str("bucket", bucket).Str("key", obj.Key).Msg("deleted object")
	return nil
}

// SearchObjects returns every object whose key starts with prefix.
func (s *Store) SearchObjects(ctx context.Context, prefix string) ([]s3types.Object, error) {
	if err := validation.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	bucket, err := s.currentBucket("searchObjects")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := []s3types.Object{}
	for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, translateError("searchObjects", info.Err).WithBucket(bucket).WithKey(prefix)
		}
		objects = append(objects, *convertObject(info))
	}
	return objects, nil
}

func convertObject(info minio.ObjectInfo) *s3types.Object {
	return &s3types.Object{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         etag.Normalize(info.ETag),
		LastModified: info.LastModified,
		StorageClass: info.StorageClass,
		ContentType:  info.ContentType,
	}
}

func fileError(op, path string, err error) *hcperrors.Error {
	code := hcperrors.CodeUnreadable
	if errors.Is(err, fs.ErrNotExist) {
		code = hcperrors.CodeNotFound
	}
	return hcperrors.NewCode(op, code, err).WithPath(path)
}
