package testutil

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

// GenerateRandomData generates size pseudo-random bytes. The same size
// always yields the same bytes so failures are reproducible.
func GenerateRandomData(size int) []byte {
	r := rand.New(rand.NewSource(int64(size)))
	data := make([]byte, size)
	_, _ = r.Read(data)
	return data
}

// GenerateTestKey generates a unique object key with an optional prefix.
func GenerateTestKey(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, time.Now().UnixNano(), rand.Int63n(100000))
}

// GenerateTestBucketName generates a DNS-compliant bucket name.
func GenerateTestBucketName(prefix string) string {
	name := fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000))
	name = strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// WriteFile writes data to path on fs, failing the test on error.
func WriteFile(t *testing.T, fs billy.Filesystem, path string, data []byte) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, data, 0o644))
}

// ReadFile reads path from fs, failing the test on error.
func ReadFile(t *testing.T, fs billy.Filesystem, path string) []byte {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

// APIError builds a service error with the given code, as the SDK would
// deserialize it from an error response.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

// CreateTestObject creates a listing entry for mocked ListObjectsV2 responses.
func CreateTestObject(key string, size int64, etag string) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		ETag:         aws.String(`"` + etag + `"`),
		LastModified: aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		StorageClass: types.ObjectStorageClassStandard,
	}
}
