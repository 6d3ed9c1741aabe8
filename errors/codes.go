// Package errors provides the error taxonomy shared by the HCP manager,
// the storage backends and the content verifier.
//
// Every failure carries a Code so callers can branch on the kind of
// failure with errors.Is or CodeOf instead of matching messages.
package errors

// Code classifies a failure. Codes are string-based for debuggability and
// natural JSON serialization.
type Code string

const (
	// CodeNotFound indicates a local file, bucket or remote object does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUnreadable indicates a permission or I/O failure while reading.
	CodeUnreadable Code = "UNREADABLE"

	// CodeInvalidInput indicates a bad argument: an empty key, a non-positive
	// part size, malformed credentials.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeAccessDenied indicates the store rejected the credentials.
	CodeAccessDenied Code = "ACCESS_DENIED"

	// CodeUnknown indicates an unclassified failure, usually a transport error.
	CodeUnknown Code = "UNKNOWN"
)

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}
