// Package hcp manages objects on a Hitachi Content Platform tenant (or any
// other S3-compatible store) and verifies that stored objects match local
// files.
//
// A Manager wraps the AWS SDK v2 S3 client. Callers build Credentials at the
// composition root, attach a bucket, and then upload, search, download and
// delete objects in it. Verification compares the ETag the store reports
// with a fingerprint computed locally by the etag package; uploads use the
// same part size as the verifier so multipart ETags can be reproduced.
//
// Example usage:
//
//	creds, err := credentials.LoadFile(osfs.New(""), "keys.json")
//	if err != nil {
//	    return err
//	}
//	m, err := hcp.New(ctx, creds, hcp.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := m.AttachBucket(ctx, "ngs-test"); err != nil {
//	    return err
//	}
//	if _, err := m.UploadFile(ctx, "reads_R1.fasterq", "unittest/reads_R1.fasterq"); err != nil {
//	    return err
//	}
//	ok, err := hcp.VerifyObject(ctx, m, m.Verifier(), "reads_R1.fasterq", "unittest/reads_R1.fasterq")
package hcp
