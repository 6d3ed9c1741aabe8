package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/s3api"
)

// FakeS3 is an in-memory S3API that stores object content and computes
// ETags the way S3 and HCP do: the quoted MD5 of the content for single
// uploads and the quoted MD5 of the concatenated part digests with a
// "-<parts>" suffix for multipart uploads.
type FakeS3 struct {
	// PageSize caps the keys returned per ListObjectsV2 call (default 1000)
	PageSize int

	// PartHook, if set, runs before each UploadPart and may fail it
	PartHook func(partNumber int32) error

	mu      sync.Mutex
	buckets map[string]map[string]*fakeObject
	uploads map[string]*fakeUpload
	nextID  int
	faults  map[string]error
	aborted []string
	calls   map[string]int
}

type fakeObject struct {
	data        []byte
	etag        string
	contentType string
	metadata    map[string]string
	modified    time.Time
}

type fakeUpload struct {
	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	parts       map[int32][]byte
}

var _ s3api.S3API = (*FakeS3)(nil)

// NewFakeS3 returns a fake holding the given empty buckets.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]map[string]*fakeObject),
		uploads: make(map[string]*fakeUpload),
		faults:  make(map[string]error),
		calls:   make(map[string]int),
	}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]*fakeObject)
	}
	return f
}

// Fail makes every subsequent call of op (e.g. "PutObject") return err.
// A nil err clears the fault.
func (f *FakeS3) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.faults, op)
		return
	}
	f.faults[op] = err
}

// Calls returns how many times op was invoked.
func (f *FakeS3) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Aborted returns the IDs of aborted multipart uploads.
func (f *FakeS3) Aborted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborted...)
}

// PendingUploads returns the number of multipart uploads neither completed
// nor aborted.
func (f *FakeS3) PendingUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// Content returns the stored bytes of an object.
func (f *FakeS3) Content(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte{}, obj.data...), true
}

// PutContent stores an object directly, as a single upload would.
func (f *FakeS3) PutContent(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucketLocked(bucket)[key] = &fakeObject{
		data:     append([]byte(nil), data...),
		etag:     simpleETag(data),
		modified: time.Now().UTC(),
	}
}

func (f *FakeS3) bucketLocked(bucket string) map[string]*fakeObject {
	b, ok := f.buckets[bucket]
	if !ok {
		b = make(map[string]*fakeObject)
		f.buckets[bucket] = b
	}
	return b
}

// begin records a call and returns an injected fault, if any. Callers must
// hold f.mu.
func (f *FakeS3) begin(op string) error {
	f.calls[op]++
	return f.faults[op]
}

func (f *FakeS3) objectLocked(bucket, key string) (*fakeObject, error) {
	b, ok := f.buckets[bucket]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket does not exist")}
	}
	obj, ok := b[key]
	if !ok {
		return nil, nil
	}
	return obj, nil
}

// HeadBucket reports NotFound for unknown buckets.
func (f *FakeS3) HeadBucket(
	_ context.Context,
	params *s3.HeadBucketInput,
	_ ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("HeadBucket"); err != nil {
		return nil, err
	}
	if _, ok := f.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadBucketOutput{}, nil
}

// PutObject stores the body in a single request.
func (f *FakeS3) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PutObject"); err != nil {
		return nil, err
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket does not exist")}
	}
	obj := &fakeObject{
		data:        data,
		etag:        simpleETag(data),
		contentType: aws.ToString(params.ContentType),
		metadata:    params.Metadata,
		modified:    time.Now().UTC(),
	}
	b[aws.ToString(params.Key)] = obj
	return &s3.PutObjectOutput{ETag: aws.String(obj.etag)}, nil
}

// GetObject returns the object's content, or NoSuchKey.
func (f *FakeS3) GetObject(
	_ context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetObject"); err != nil {
		return nil, err
	}
	obj, err := f.objectLocked(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

// HeadObject returns the object's metadata, or NotFound.
func (f *FakeS3) HeadObject(
	_ context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("HeadObject"); err != nil {
		return nil, err
	}
	obj, err := f.objectLocked(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		ETag:          aws.String(obj.etag),
		LastModified:  aws.Time(obj.modified),
		Metadata:      obj.metadata,
		StorageClass:  types.StorageClassStandard,
	}, nil
}

// DeleteObject removes an object. Deleting a missing key succeeds, as on S3.
func (f *FakeS3) DeleteObject(
	_ context.Context,
	params *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteObject"); err != nil {
		return nil, err
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket does not exist")}
	}
	delete(b, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 lists keys in lexical order, one page at a time.
func (f *FakeS3) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListObjectsV2"); err != nil {
		return nil, err
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket does not exist")}
	}

	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)
	if after == "" {
		after = aws.ToString(params.StartAfter)
	}
	keys := make([]string, 0, len(b))
	for key := range b {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	limit := f.PageSize
	if limit <= 0 {
		limit = 1000
	}
	if params.MaxKeys != nil && int(*params.MaxKeys) < limit {
		limit = int(*params.MaxKeys)
	}

	out := &s3.ListObjectsV2Output{
		Name:        params.Bucket,
		Prefix:      params.Prefix,
		IsTruncated: aws.Bool(false),
	}
	if len(keys) > limit {
		keys = keys[:limit]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, key := range keys {
		obj := b[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			ETag:         aws.String(obj.etag),
			LastModified: aws.Time(obj.modified),
			StorageClass: types.ObjectStorageClassStandard,
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))
	return out, nil
}

// CreateMultipartUpload starts a multipart upload.
func (f *FakeS3) CreateMultipartUpload(
	_ context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateMultipartUpload"); err != nil {
		return nil, err
	}
	if _, ok := f.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("bucket does not exist")}
	}
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	f.uploads[id] = &fakeUpload{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		contentType: aws.ToString(params.ContentType),
		metadata:    params.Metadata,
		parts:       make(map[int32][]byte),
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(id),
	}, nil
}

// UploadPart stores one part of a multipart upload.
func (f *FakeS3) UploadPart(
	_ context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	partNumber := aws.ToInt32(params.PartNumber)
	if f.PartHook != nil {
		if err := f.PartHook(partNumber); err != nil {
			return nil, err
		}
	}
	var data []byte
	if params.Body != nil {
		var err error
		if data, err = io.ReadAll(params.Body); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UploadPart"); err != nil {
		return nil, err
	}
	upload, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("upload does not exist")}
	}
	upload.parts[partNumber] = data
	return &s3.UploadPartOutput{ETag: aws.String(simpleETag(data))}, nil
}

// CompleteMultipartUpload assembles the listed parts into the object.
func (f *FakeS3) CompleteMultipartUpload(
	_ context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CompleteMultipartUpload"); err != nil {
		return nil, err
	}
	id := aws.ToString(params.UploadId)
	upload, ok := f.uploads[id]
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("upload does not exist")}
	}
	if params.MultipartUpload == nil || len(params.MultipartUpload.Parts) == 0 {
		return nil, fmt.Errorf("MalformedXML: no parts listed")
	}

	var content []byte
	digests := md5.New()
	prev := int32(0)
	for _, part := range params.MultipartUpload.Parts {
		n := aws.ToInt32(part.PartNumber)
		if n <= prev {
			return nil, fmt.Errorf("InvalidPartOrder: part %d listed after %d", n, prev)
		}
		prev = n
		data, ok := upload.parts[n]
		if !ok {
			return nil, fmt.Errorf("InvalidPart: part %d was not uploaded", n)
		}
		if aws.ToString(part.ETag) != simpleETag(data) {
			return nil, fmt.Errorf("InvalidPart: part %d etag mismatch", n)
		}
		sum := md5.Sum(data)
		digests.Write(sum[:])
		content = append(content, data...)
	}

	etag := fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(digests.Sum(nil)), len(params.MultipartUpload.Parts))
	f.bucketLocked(upload.bucket)[upload.key] = &fakeObject{
		data:        content,
		etag:        etag,
		contentType: upload.contentType,
		metadata:    upload.metadata,
		modified:    time.Now().UTC(),
	}
	delete(f.uploads, id)
	return &s3.CompleteMultipartUploadOutput{
		Bucket: aws.String(upload.bucket),
		Key:    aws.String(upload.key),
		ETag:   aws.String(etag),
	}, nil
}

// AbortMultipartUpload discards a multipart upload and its parts.
func (f *FakeS3) AbortMultipartUpload(
	_ context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("AbortMultipartUpload"); err != nil {
		return nil, err
	}
	id := aws.ToString(params.UploadId)
	if _, ok := f.uploads[id]; !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("upload does not exist")}
	}
	delete(f.uploads, id)
	f.aborted = append(f.aborted, id)
	return &s3.AbortMultipartUploadOutput{}, nil
}

func simpleETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
