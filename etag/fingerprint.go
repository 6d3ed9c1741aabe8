package etag

import (
	"fmt"
	"strconv"
	"strings"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

// Normalize strips the quoting servers put around ETags, including the weak
// validator prefix, and lowercases the result.
func Normalize(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return strings.ToLower(etag)
}

// IsComposite reports whether a fingerprint carries a part-count suffix.
func IsComposite(etag string) bool {
	_, parts, err := Parse(etag)
	return err == nil && parts > 0
}

// Parse splits a fingerprint into its hex digest and part count.
// Simple fingerprints report zero parts.
func Parse(etag string) (digest string, parts int, err error) {
	etag = Normalize(etag)
	if etag == "" {
		return "", 0, hcperrors.InvalidInput("parseETag", "fingerprint is empty")
	}

	digest, suffix, composite := strings.Cut(etag, "-")
	if !isHex(digest) {
		return "", 0, hcperrors.InvalidInput("parseETag", fmt.Sprintf("digest %q is not hexadecimal", digest))
	}
	if !composite {
		return digest, 0, nil
	}

	parts, err = strconv.Atoi(suffix)
	if err != nil || parts < 1 {
		return "", 0, hcperrors.InvalidInput("parseETag", fmt.Sprintf("part count %q is not a positive integer", suffix))
	}
	return digest, parts, nil
}

// PartCount returns how many parts a file of size bytes is split into.
// Files no larger than partSize, including empty ones, are a single part.
func PartCount(size, partSize int64) int {
	if partSize <= 0 || size <= partSize {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}

func isHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
