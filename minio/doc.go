// Package minio implements hcp.Storage with the MinIO client library, for
// deployments that already standardise on minio-go.
//
// Uploads use the configured part size as both the multipart threshold and
// the part size, so stored ETags can be checked with the etag package in
// the same way as those written by hcp.Manager. The part size must be at
// least 5 MiB.
package minio
