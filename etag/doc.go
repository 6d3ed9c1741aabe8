// Package etag computes S3-style content fingerprints for local files and
// compares them with the ETag an object store reports.
//
// A file no larger than the part size gets a simple fingerprint: the hex
// digest of its content. A larger file gets a composite fingerprint: the
// hex digest of the concatenated raw digests of each part, followed by
// "-<parts>". The composite form only matches the remote ETag when the part
// size equals the one used at upload time.
//
// Example usage:
//
//	v, err := etag.New(etag.WithPartSize(8 * 1024 * 1024))
//	if err != nil {
//	    return err
//	}
//	ok, err := v.Verify("/data/reads.fasterq", obj.ETag)
package etag
