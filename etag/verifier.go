package etag

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/pool"
)

// DefaultPartSize matches the conventional multipart threshold (8 MiB).
const DefaultPartSize int64 = 8 * 1024 * 1024

// Verifier computes fingerprints of local files.
// It holds no state between calls and is safe for concurrent use; callers
// must keep a file unchanged while it is being fingerprinted.
type Verifier struct {
	partSize int64
	fs       billy.Filesystem
	newHash  func() hash.Hash
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPartSize sets the part size used to split large files.
func WithPartSize(partSize int64) Option {
	return func(v *Verifier) {
		v.partSize = partSize
	}
}

// WithFilesystem sets the filesystem files are read from.
// Defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) Option {
	return func(v *Verifier) {
		v.fs = filesystem
	}
}

// WithHash sets the digest used for parts and for the composite.
// Defaults to MD5, which is what S3-compatible stores use for ETags.
func WithHash(newHash func() hash.Hash) Option {
	return func(v *Verifier) {
		v.newHash = newHash
	}
}

// New creates a Verifier. It fails with an invalid-input error when the part
// size is not positive or the hash constructor is nil.
func New(opts ...Option) (*Verifier, error) {
	v := &Verifier{
		partSize: DefaultPartSize,
		fs:       osfs.New(""),
		newHash:  md5.New,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.partSize <= 0 {
		return nil, hcperrors.InvalidInput("newVerifier", fmt.Sprintf("part size must be positive, got %d", v.partSize))
	}
	if v.newHash == nil {
		return nil, hcperrors.InvalidInput("newVerifier", "hash constructor cannot be nil")
	}
	if v.fs == nil {
		return nil, hcperrors.InvalidInput("newVerifier", "filesystem cannot be nil")
	}
	return v, nil
}

// PartSize returns the configured part size.
func (v *Verifier) PartSize() int64 {
	return v.partSize
}

// Fingerprint computes the fingerprint of the file at path.
//
// Errors:
//   - ErrNotFound: the file does not exist
//   - ErrInvalidInput: path is empty or names a directory
//   - ErrUnreadable: permission or I/O failure, including a file that shrank while being read
func (v *Verifier) Fingerprint(path string) (string, error) {
	if path == "" {
		return "", hcperrors.InvalidInput("fingerprint", "path cannot be empty")
	}

	info, err := v.fs.Stat(path)
	if err != nil {
		return "", classify("fingerprint", path, err)
	}
	if info.IsDir() {
		return "", hcperrors.InvalidInput("fingerprint", "path is a directory").WithPath(path)
	}

	file, err := v.fs.Open(path)
	if err != nil {
		return "", classify("fingerprint", path, err)
	}
	defer file.Close()

	sum, err := v.FingerprintReader(file, info.Size())
	if err != nil {
		return "", hcperrors.New("fingerprint", err).WithPath(path)
	}
	return sum, nil
}

// FingerprintReader computes the fingerprint of exactly size bytes read from r.
// Fewer bytes than size is an unreadable error.
func (v *Verifier) FingerprintReader(r io.Reader, size int64) (string, error) {
	if size < 0 {
		return "", hcperrors.InvalidInput("fingerprintReader", fmt.Sprintf("size must not be negative, got %d", size))
	}

	buf := pool.Get(pool.MediumBufferSize)
	defer pool.Put(buf)

	if size <= v.partSize {
		h := v.newHash()
		if err := copyExactly(h, r, size, buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	composite := v.newHash()
	parts := 0
	for remaining := size; remaining > 0; {
		n := min(v.partSize, remaining)
		part := v.newHash()
		if err := copyExactly(part, r, n, buf); err != nil {
			return "", err
		}
		composite.Write(part.Sum(nil))
		parts++
		remaining -= n
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(composite.Sum(nil)), parts), nil
}

// Verify reports whether the file at path matches the remote fingerprint.
// Errors from Fingerprint are returned as-is; a missing file is never a
// plain false.
func (v *Verifier) Verify(path, remote string) (bool, error) {
	local, err := v.Fingerprint(path)
	if err != nil {
		return false, err
	}
	return local == Normalize(remote), nil
}

// Fingerprint computes the fingerprint of a file on the OS filesystem using MD5.
func Fingerprint(path string, partSize int64) (string, error) {
	v, err := New(WithPartSize(partSize))
	if err != nil {
		return "", err
	}
	return v.Fingerprint(path)
}

// Verify compares a file on the OS filesystem with a remote fingerprint using MD5.
func Verify(path, remote string, partSize int64) (bool, error) {
	v, err := New(WithPartSize(partSize))
	if err != nil {
		return false, err
	}
	return v.Verify(path, remote)
}

func copyExactly(dst io.Writer, src io.Reader, n int64, buf []byte) error {
	copied, err := io.CopyBuffer(dst, io.LimitReader(src, n), buf)
	if err != nil {
		return hcperrors.NewCode("read", hcperrors.CodeUnreadable, err)
	}
	if copied != n {
		return hcperrors.NewCode("read", hcperrors.CodeUnreadable, io.ErrUnexpectedEOF).
			WithMessage(fmt.Sprintf("read %d of %d bytes", copied, n))
	}
	return nil
}

func classify(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return hcperrors.NewCode(op, hcperrors.CodeNotFound, err).WithPath(path)
	}
	return hcperrors.NewCode(op, hcperrors.CodeUnreadable, err).WithPath(path)
}
