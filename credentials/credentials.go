// Package credentials holds the endpoint and keys used to reach an HCP
// tenant, and loads them from a keys.json document or Secrets Manager.
//
// Credentials are always passed explicitly to the storage constructors;
// nothing in this module reads them implicitly.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-git/go-billy/v5"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

// Credentials identify an HCP tenant endpoint and the S3 keys for it.
type Credentials struct {
	// Endpoint is the absolute http(s) URL of the S3 gateway
	Endpoint string

	// AccessKeyID is the S3 access key
	AccessKeyID string

	// SecretAccessKey is the S3 secret key
	SecretAccessKey string

	// Region is optional; HCP ignores it but request signing needs one
	Region string
}

// document is the keys.json layout.
type document struct {
	Endpoint        string `json:"ep"`
	AccessKeyID     string `json:"aki"`
	SecretAccessKey string `json:"sak"`
	Region          string `json:"region,omitempty"`
}

// Validate checks that the endpoint is an absolute http or https URL with
// a host and that both keys are present and free of whitespace. It makes
// no network calls.
func (c Credentials) Validate() error {
	if c.Endpoint == "" {
		return invalid("endpoint cannot be empty")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return invalid("endpoint is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("endpoint must use http or https")
	}
	if u.Host == "" || u.Hostname() == "" {
		return invalid("endpoint must include a host")
	}
	if err := validateKey("access key", c.AccessKeyID); err != nil {
		return err
	}
	return validateKey("secret key", c.SecretAccessKey)
}

func validateKey(name, key string) error {
	if key == "" {
		return invalid(name + " cannot be empty")
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return invalid(name + " cannot contain whitespace")
	}
	return nil
}

func invalid(message string) error {
	return hcperrors.NewCode("validateCredentials", hcperrors.CodeInvalidInput, hcperrors.ErrInvalidCredentials).
		WithMessage(message)
}

// Provider returns a static credentials provider for the AWS SDK.
func (c Credentials) Provider() aws.CredentialsProvider {
	return awscreds.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")
}

// String describes the credentials without revealing the secret key.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Endpoint: %q, AccessKeyID: %q, SecretAccessKey: %s}",
		c.Endpoint, c.AccessKeyID, redact(c.SecretAccessKey))
}

// GoString keeps the secret out of %#v output as well.
func (c Credentials) GoString() string {
	return c.String()
}

func redact(secret string) string {
	if secret == "" {
		return `""`
	}
	return "[REDACTED]"
}

// Parse decodes a keys.json document.
func Parse(data []byte) (Credentials, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Credentials{}, hcperrors.NewCode("parseCredentials", hcperrors.CodeInvalidInput, hcperrors.ErrInvalidCredentials).
			WithMessage(fmt.Sprintf("malformed credentials document: %v", err))
	}

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"ep", doc.Endpoint},
		{"aki", doc.AccessKeyID},
		{"sak", doc.SecretAccessKey},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return Credentials{}, hcperrors.NewCode("parseCredentials", hcperrors.CodeInvalidInput, hcperrors.ErrInvalidCredentials).
			WithMessage("missing fields: " + strings.Join(missing, ", "))
	}

	return Credentials{
		Endpoint:        doc.Endpoint,
		AccessKeyID:     doc.AccessKeyID,
		SecretAccessKey: doc.SecretAccessKey,
		Region:          doc.Region,
	}, nil
}

// LoadFile reads a keys.json document from fsys.
func LoadFile(fsys billy.Filesystem, path string) (Credentials, error) {
	f, err := fsys.Open(path)
	if err != nil {
		code := hcperrors.CodeUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			code = hcperrors.CodeNotFound
		}
		return Credentials{}, hcperrors.NewCode("loadCredentials", code, err).WithPath(path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Credentials{}, hcperrors.NewCode("loadCredentials", hcperrors.CodeUnreadable, err).WithPath(path)
	}
	creds, err := Parse(data)
	if err != nil {
		return Credentials{}, hcperrors.New("loadCredentials", err).WithPath(path)
	}
	return creds, nil
}
