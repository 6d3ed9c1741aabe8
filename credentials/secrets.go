package credentials

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
)

// AWS error codes returned by Secrets Manager.
const (
	resourceNotFoundException = "ResourceNotFoundException"
	accessDeniedException     = "AccessDeniedException"
)

// SecretsAPI is the part of the Secrets Manager client used to fetch
// credentials.
type SecretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsAPI = (*secretsmanager.Client)(nil)

// SecretsManagerSource resolves credentials stored as a keys.json document
// in an AWS Secrets Manager secret.
type SecretsManagerSource struct {
	api    SecretsAPI
	logger zerolog.Logger
}

// NewSecretsManagerSource creates a source backed by api.
func NewSecretsManagerSource(api SecretsAPI, logger zerolog.Logger) *SecretsManagerSource {
	return &SecretsManagerSource{api: api, logger: logger}
}

// NewSecretsManagerSourceFromConfig creates a source from an AWS config.
func NewSecretsManagerSourceFromConfig(cfg aws.Config, logger zerolog.Logger) *SecretsManagerSource {
	return NewSecretsManagerSource(secretsmanager.NewFromConfig(cfg), logger)
}

// Load fetches and parses the secret named secretID.
func (s *SecretsManagerSource) Load(ctx context.Context, secretID string) (Credentials, error) {
	if secretID == "" {
		return Credentials{}, hcperrors.InvalidInput("loadSecret", "secret id cannot be empty")
	}

	s.logger.Debug().Str("secret_id", secretID).Msg("retrieving credentials secret")
	output, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		code := hcperrors.CodeUnknown
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case resourceNotFoundException:
				code = hcperrors.CodeNotFound
			case accessDeniedException:
				code = hcperrors.CodeAccessDenied
			}
		}
		s.logger.Error().Err(err).Str("secret_id", secretID).Msg("failed to retrieve credentials secret")
		return Credentials{}, hcperrors.NewCode("loadSecret", code, err).WithKey(secretID)
	}

	var data []byte
	switch {
	case output.SecretString != nil:
		data = []byte(*output.SecretString)
	case len(output.SecretBinary) > 0:
		data = output.SecretBinary
	default:
		return Credentials{}, hcperrors.InvalidInput("loadSecret", "secret value is empty").WithKey(secretID)
	}

	creds, err := Parse(data)
	if err != nil {
		return Credentials{}, hcperrors.New("loadSecret", err).WithKey(secretID)
	}
	return creds, nil
}
