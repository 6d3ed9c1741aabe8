package minio

import (
	"net/http"

	"github.com/minio/minio-go/v7"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

var errorCodes = map[string]hcperrors.Code{
	"NoSuchKey":             hcperrors.CodeNotFound,
	"NoSuchBucket":          hcperrors.CodeNotFound,
	"NotFound":              hcperrors.CodeNotFound,
	"AccessDenied":          hcperrors.CodeAccessDenied,
	"InvalidAccessKeyId":    hcperrors.CodeAccessDenied,
	"SignatureDoesNotMatch": hcperrors.CodeAccessDenied,
	"InvalidBucketName":     hcperrors.CodeInvalidInput,
	"InvalidArgument":       hcperrors.CodeInvalidInput,
	"EntityTooSmall":        hcperrors.CodeInvalidInput,
}

// translateError tags a minio-go error with the matching hcp code.
func translateError(op string, err error) *hcperrors.Error {
	if code := hcperrors.CodeOf(err); code != hcperrors.CodeUnknown {
		return hcperrors.NewCode(op, code, err)
	}

	resp := minio.ToErrorResponse(err)
	if code, ok := errorCodes[resp.Code]; ok {
		return hcperrors.NewCode(op, code, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return hcperrors.NewCode(op, hcperrors.CodeNotFound, err)
	case http.StatusForbidden, http.StatusUnauthorized:
		return hcperrors.NewCode(op, hcperrors.CodeAccessDenied, err)
	}
	return hcperrors.NewCode(op, hcperrors.CodeUnknown, err)
}
