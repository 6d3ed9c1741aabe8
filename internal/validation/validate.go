// Package validation checks bucket names, object keys and metadata before
// they are sent to the store, so bad input fails fast with an
// invalid-input error instead of a transport error.
package validation

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

const (
	maxKeyLength           = 1024
	maxMetadataKeyLength   = 128
	maxMetadataValueLength = 2048
)

// ValidateBucketName validates a DNS-compliant bucket name.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.InvalidInput("validateBucketName", "bucket name cannot be empty").WithBucket(bucket)
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.InvalidInput("validateBucketName", "bucket name must be between 3 and 63 characters long").
			WithBucket(bucket)
	}
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.InvalidInput("validateBucketName",
				"bucket name can only contain lowercase letters, numbers, dots, and hyphens").WithBucket(bucket)
		}
	}
	if !isAlnum(bucket[0]) || !isAlnum(bucket[len(bucket)-1]) {
		return errors.InvalidInput("validateBucketName", "bucket name must begin and end with a letter or number").
			WithBucket(bucket)
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, ".-") || strings.Contains(bucket, "-.") {
		return errors.InvalidInput("validateBucketName", "bucket name cannot contain adjacent dots or dot-hyphen pairs").
			WithBucket(bucket)
	}
	if net.ParseIP(bucket) != nil {
		return errors.InvalidInput("validateBucketName", "bucket name cannot be formatted as an IP address").
			WithBucket(bucket)
	}
	return nil
}

// ValidateObjectKey validates an object key, rejecting path traversal and
// control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.InvalidInput("validateObjectKey", "object key cannot be empty").WithKey(key)
	}
	if len(key) > maxKeyLength {
		return errors.InvalidInput("validateObjectKey", "object key cannot exceed 1024 bytes").WithKey(key)
	}
	if hasPathTraversal(key) {
		return errors.InvalidInput("validateObjectKey", "object key cannot contain path traversal sequences").
			WithKey(key)
	}
	if hasControlCharacters(key) {
		return errors.InvalidInput("validateObjectKey", "object key cannot contain control characters").WithKey(key)
	}
	return nil
}

// ValidatePrefix validates a search prefix. An empty prefix matches every key.
func ValidatePrefix(prefix string) error {
	if len(prefix) > maxKeyLength {
		return errors.InvalidInput("validatePrefix", "prefix cannot exceed 1024 bytes").WithKey(prefix)
	}
	if hasControlCharacters(prefix) {
		return errors.InvalidInput("validatePrefix", "prefix cannot contain control characters").WithKey(prefix)
	}
	return nil
}

// ValidateLocalPath validates a local file path argument.
func ValidateLocalPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.InvalidInput("validateLocalPath", "local path cannot be empty")
	}
	return nil
}

// ValidateMetadata validates user metadata keys and values.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return errors.InvalidInput("validateMetadata", "metadata key cannot be empty")
		}
		if len(key) > maxMetadataKeyLength {
			return errors.InvalidInput("validateMetadata", "metadata key cannot exceed 128 characters")
		}
		lower := strings.ToLower(key)
		for _, prefix := range []string{"aws:", "x-amz-", "x-hcp-"} {
			if strings.HasPrefix(lower, prefix) {
				return errors.InvalidInput("validateMetadata",
					fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
			}
		}
		for _, char := range key {
			if char <= ' ' || char > '~' {
				return errors.InvalidInput("validateMetadata", "metadata key can only contain printable ASCII characters")
			}
		}
		if len(value) > maxMetadataValueLength {
			return errors.InvalidInput("validateMetadata", "metadata value cannot exceed 2048 characters")
		}
		for _, char := range value {
			if !unicode.IsPrint(char) && char != '\t' {
				return errors.InvalidInput("validateMetadata", "metadata value can only contain printable characters")
			}
		}
	}
	return nil
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}

func hasPathTraversal(key string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(key), "/") {
		if segment == ".." {
			return true
		}
	}
	if strings.HasPrefix(key, "/") {
		return true
	}
	// Windows drive letters
	return len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/')
}

func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
