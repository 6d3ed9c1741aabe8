// Package upload sends local files to the store.
//
// Files no larger than the part size go up in a single PutObject request.
// Larger files use the multipart API with that same part size, so the
// ETag the store computes can be reproduced locally by the etag package.
// Parts are read straight from the file through io.SectionReader and
// uploaded concurrently; a failed upload is aborted.
package upload
