// Package list enumerates stored objects by key prefix.
package list

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/awserr"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// maxPageSize is the most keys S3 returns per request.
const maxPageSize = 1000

// Lister lists objects page by page.
type Lister struct {
	client   s3.ListObjectsV2APIClient
	pageSize int32
}

// New creates a Lister. A pageSize outside 1..1000 means 1000.
func New(client s3.ListObjectsV2APIClient, pageSize int32) *Lister {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Lister{client: client, pageSize: pageSize}
}

// All returns every object in bucket whose key starts with prefix, in the
// store's (lexical) key order.
func (l *Lister) All(ctx context.Context, bucket, prefix string) ([]s3types.Object, error) {
	objects := []s3types.Object{}
	err := l.Each(ctx, bucket, prefix, func(obj s3types.Object) bool {
		objects = append(objects, obj)
		return true
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// Each calls fn for every object under prefix until fn returns false.
func (l *Lister) Each(ctx context.Context, bucket, prefix string, fn func(s3types.Object) bool) error {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(l.pageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return awserr.Wrap("list", err).WithBucket(bucket).WithKey(prefix)
		}
		for _, obj := range page.Contents {
			if !fn(convertObject(obj)) {
				return nil
			}
		}
	}
	return nil
}

func convertObject(obj awstypes.Object) s3types.Object {
	return s3types.Object{
		Key:          aws.ToString(obj.Key),
		Size:         aws.ToInt64(obj.Size),
		ETag:         etag.Normalize(aws.ToString(obj.ETag)),
		LastModified: aws.ToTime(obj.LastModified),
		StorageClass: string(obj.StorageClass),
	}
}
