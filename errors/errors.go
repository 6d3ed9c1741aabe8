package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per Code plus a few specific conditions.
// These can be used with errors.Is() for error checking.
var (
	// ErrNotFound indicates that a file, bucket or object does not exist
	ErrNotFound = errors.New("hcp: not found")

	// ErrUnreadable indicates that a local file could not be read
	ErrUnreadable = errors.New("hcp: unreadable")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("hcp: invalid input")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("hcp: access denied")

	// ErrNoBucket indicates an object operation was attempted before a bucket was attached
	ErrNoBucket = fmt.Errorf("%w: no bucket attached", ErrInvalidInput)

	// ErrInvalidCredentials indicates malformed credentials
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrInvalidInput)

	// ErrChecksumMismatch indicates that a local fingerprint differs from the remote one
	ErrChecksumMismatch = errors.New("hcp: checksum mismatch")
)

var sentinels = map[Code]error{
	CodeNotFound:     ErrNotFound,
	CodeUnreadable:   ErrUnreadable,
	CodeInvalidInput: ErrInvalidInput,
	CodeAccessDenied: ErrAccessDenied,
}

// Error represents a failed operation with context about what it touched.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "fingerprint")
	Op string

	// Code classifies the failure
	Code Code

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Path is the local file path (if applicable)
	Path string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	target := ""
	switch {
	case e.Bucket != "" && e.Key != "":
		target = fmt.Sprintf(" %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		target = " bucket " + e.Bucket
	case e.Key != "":
		target = " object " + e.Key
	}
	if e.Path != "" {
		target += " file " + e.Path
	}
	return fmt.Sprintf("hcp.%s%s: %v", e.Op, target, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching the error's code.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPath adds local file context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// New creates an Error for op. The code is taken from err when err already
// carries one, otherwise it is CodeUnknown.
func New(op string, err error) *Error {
	return &Error{
		Op:   op,
		Code: CodeOf(err),
		Err:  err,
	}
}

// NewCode creates an Error with an explicit code.
func NewCode(op string, code Code, err error) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Err:  err,
	}
}

// InvalidInput creates an invalid-input Error with a message.
func InvalidInput(op, message string) *Error {
	return NewCode(op, CodeInvalidInput, ErrInvalidInput).WithMessage(message)
}

// CodeOf returns the Code carried by err, looking through wrapped errors.
// A nil error has no code and returns the empty Code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" && e.Code != CodeUnknown {
		return e.Code
	}
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// IsNotFound checks if an error indicates that a file, bucket or object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnreadable checks if an error indicates a local read failure.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadable)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
