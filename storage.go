package hcp

import (
	"context"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// Storage is an object store holding one attached bucket.
//
// Object operations fail with an invalid-input error (wrapping
// errors.ErrNoBucket) until AttachBucket succeeds.
type Storage interface {
	// AttachBucket selects an existing bucket for later operations
	AttachBucket(ctx context.Context, name string) error

	// UploadFile uploads a local file as key
	UploadFile(ctx context.Context, localPath, key string, opts ...s3types.UploadOption) (*s3types.UploadResult, error)

	// GetObject returns an object's metadata, or nil if it does not exist
	GetObject(ctx context.Context, key string) (*s3types.Object, error)

	// DownloadFile writes an object to a local file
	DownloadFile(
		ctx context.Context,
		obj *s3types.Object,
		localPath string,
		opts ...s3types.DownloadOption,
	) (*s3types.DownloadResult, error)

	// DeleteObject removes an object
	DeleteObject(ctx context.Context, obj *s3types.Object) error

	// SearchObjects lists objects whose keys start with prefix
	SearchObjects(ctx context.Context, prefix string) ([]s3types.Object, error)
}

// VerifyObject reports whether the file at localPath has the same content
// as the object stored under key, by comparing v's fingerprint of the file
// with the object's ETag. A missing object fails with a not-found error.
//
// v must use the part size the object was uploaded with; a Manager's
// Verifier does.
func VerifyObject(ctx context.Context, store Storage, v *etag.Verifier, localPath, key string) (bool, error) {
	if store == nil || v == nil {
		return false, errors.InvalidInput("verifyObject", "storage and verifier are required")
	}

	obj, err := store.GetObject(ctx, key)
	if err != nil {
		return false, err
	}
	if obj == nil {
		return false, errors.NewCode("verifyObject", errors.CodeNotFound, errors.ErrNotFound).WithKey(key)
	}
	return v.Verify(localPath, obj.ETag)
}
