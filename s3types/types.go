// Package s3types provides shared type definitions for the HCP manager and
// its storage backends.
package s3types

import (
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"
)

// DefaultPartSize is the multipart threshold and part size used for uploads
// and for computing composite fingerprints (8 MiB).
const DefaultPartSize int64 = 8 * 1024 * 1024

// DefaultRegion is used when neither the credentials nor the options name one.
const DefaultRegion = "us-east-1"

// Object describes a stored object.
type Object struct {
	// Key is the object key (path) inside the bucket
	Key string

	// Size is the object size in bytes
	Size int64

	// ETag is the server-computed fingerprint, with surrounding quotes removed
	ETag string

	// LastModified is when the object was last modified
	LastModified time.Time

	// StorageClass is the storage class reported by the store, if any
	StorageClass string

	// ContentType is the MIME type, populated by metadata lookups only
	ContentType string
}

// ProgressTracker defines the interface for tracking transfer progress.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the fingerprint reported by the store
	ETag string

	// Parts is the number of parts used, 1 for a simple upload
	Parts int

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Key is the object key that was downloaded
	Key string

	// Path is the local file the object was written to
	Path string

	// Size is the number of bytes written
	Size int64

	// ETag is the fingerprint reported by the store
	ETag string

	// Duration is how long the download took
	Duration time.Duration
}

// ClientConfig holds configuration for storage managers.
type ClientConfig struct {
	Region           string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	PartSize         int64
	CustomHTTPClient *http.Client
	Filesystem       billy.Filesystem
	Logger           zerolog.Logger
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType     string
	Metadata        map[string]string
	ProgressTracker ProgressTracker
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	ProgressTracker ProgressTracker
}

type (
	// Option is a functional option for configuring a storage manager.
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
)

// NewClientConfig returns the defaults with opts applied.
func NewClientConfig(opts ...Option) *ClientConfig {
	cfg := &ClientConfig{
		MaxRetries:  3,
		Concurrency: 5,
		PartSize:    DefaultPartSize,
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
