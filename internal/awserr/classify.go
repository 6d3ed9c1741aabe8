// Package awserr maps S3 service errors onto the hcp error codes.
package awserr

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

var codes = map[string]hcperrors.Code{
	"NotFound":              hcperrors.CodeNotFound,
	"NoSuchKey":             hcperrors.CodeNotFound,
	"NoSuchBucket":          hcperrors.CodeNotFound,
	"NoSuchUpload":          hcperrors.CodeNotFound,
	"AccessDenied":          hcperrors.CodeAccessDenied,
	"Forbidden":             hcperrors.CodeAccessDenied,
	"InvalidAccessKeyId":    hcperrors.CodeAccessDenied,
	"SignatureDoesNotMatch": hcperrors.CodeAccessDenied,
	"AllAccessDisabled":     hcperrors.CodeAccessDenied,
	"InvalidBucketName":     hcperrors.CodeInvalidInput,
	"InvalidArgument":       hcperrors.CodeInvalidInput,
	"KeyTooLongError":       hcperrors.CodeInvalidInput,
	"EntityTooLarge":        hcperrors.CodeInvalidInput,
}

// Classify returns the hcp code for an SDK error. Service error codes take
// precedence; bare HTTP statuses (HEAD responses carry no body) are used
// otherwise.
func Classify(err error) hcperrors.Code {
	if err == nil {
		return ""
	}
	if code := hcperrors.CodeOf(err); code != hcperrors.CodeUnknown {
		return code
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if code, ok := codes[apiErr.ErrorCode()]; ok {
			return code
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return hcperrors.CodeNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return hcperrors.CodeAccessDenied
		case http.StatusBadRequest:
			return hcperrors.CodeInvalidInput
		}
	}
	return hcperrors.CodeUnknown
}

// IsNotFound reports whether err is a missing key, object or bucket.
func IsNotFound(err error) bool {
	return Classify(err) == hcperrors.CodeNotFound
}

// Wrap tags err with op and its classified code.
func Wrap(op string, err error) *hcperrors.Error {
	return hcperrors.NewCode(op, Classify(err), err)
}
