package hcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/credentials"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// Manager is an S3-backed Storage for one attached bucket.
// It is safe for concurrent use once a bucket is attached.
type Manager struct {
	s3Client s3api.S3API
	config   *s3types.ClientConfig
	fs       billy.Filesystem
	logger   zerolog.Logger
	verifier *etag.Verifier

	mu     sync.RWMutex
	bucket string
}

var _ Storage = (*Manager)(nil)

// New creates a Manager for the endpoint in creds. Malformed credentials
// fail with an invalid-input error before any network activity.
func New(ctx context.Context, creds credentials.Credentials, opts ...s3types.Option) (*Manager, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	cfg := s3types.NewClientConfig(opts...)
	region := cfg.Region
	if region == "" {
		region = creds.Region
	}
	if region == "" {
		region = s3types.DefaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(creds.Provider()),
	}
	if cfg.MaxRetries >= 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(cfg.MaxRetries+1))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New("newManager", fmt.Errorf("failed to load AWS config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(creds.Endpoint)
		o.UsePathStyle = true
		// HCP rejects the trailing checksums the SDK sends by default.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired

		// Set after loading: LoadDefaultConfig rejects a plain *http.Client
		// when AWS_CA_BUNDLE is set.
		switch {
		case cfg.CustomHTTPClient != nil:
			o.HTTPClient = cfg.CustomHTTPClient
		case cfg.Timeout > 0:
			o.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		}
	})

	m, err := newManager(client, cfg)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Str("endpoint", creds.Endpoint).Str("region", region).Msg("created HCP manager")
	return m, nil
}

// NewWithClient creates a Manager around an existing S3 API implementation.
// This is primarily used for testing with mock clients.
func NewWithClient(s3Client s3api.S3API, opts ...s3types.Option) (*Manager, error) {
	if s3Client == nil {
		return nil, errors.InvalidInput("newManager", "S3 client cannot be nil")
	}
	return newManager(s3Client, s3types.NewClientConfig(opts...))
}

func newManager(s3Client s3api.S3API, cfg *s3types.ClientConfig) (*Manager, error) {
	if cfg.Concurrency <= 0 {
		return nil, errors.InvalidInput("newManager", fmt.Sprintf("concurrency must be positive, got %d", cfg.Concurrency))
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("")
	}

	verifier, err := etag.New(etag.WithPartSize(cfg.PartSize), etag.WithFilesystem(cfg.Filesystem))
	if err != nil {
		return nil, err
	}

	return &Manager{
		s3Client: s3Client,
		config:   cfg,
		fs:       cfg.Filesystem,
		logger:   cfg.Logger,
		verifier: verifier,
	}, nil
}

// Verifier returns a verifier using the manager's part size and filesystem,
// so its fingerprints match the ETags of files this manager uploads.
func (m *Manager) Verifier() *etag.Verifier {
	return m.verifier
}

// Bucket returns the attached bucket, or "" if none is attached.
func (m *Manager) Bucket() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bucket
}

// currentBucket returns the attached bucket or ErrNoBucket.
func (m *Manager) currentBucket(op string) (string, error) {
	bucket := m.Bucket()
	if bucket == "" {
		return "", errors.NewCode(op, errors.CodeInvalidInput, errors.ErrNoBucket)
	}
	return bucket, nil
}
