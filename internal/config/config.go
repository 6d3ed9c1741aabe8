// Package config resolves command line settings from flags, the
// environment, a .env file and a keys.json credentials file.
//
// Precedence, highest first: explicit overrides (flags), HCP_* environment
// variables, the .env file, the credentials file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/hcp/credentials"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "HCP"

// Setting keys. The environment variable for a key is EnvPrefix + "_" +
// the upper-cased key, e.g. HCP_ACCESS_KEY.
const (
	KeyEndpoint    = "endpoint"
	KeyAccessKey   = "access_key"
	KeySecretKey   = "secret_key"
	KeyCredentials = "credentials"
	KeyBucket      = "bucket"
	KeyRegion      = "region"
	KeyPartSize    = "part_size"
	KeyBackend     = "backend"
	KeyLogLevel    = "log_level"
)

// Storage backends.
const (
	BackendAWS   = "aws"
	BackendMinio = "minio"
)

// Config is the resolved tool configuration.
type Config struct {
	Credentials     credentials.Credentials
	CredentialsFile string
	Bucket          string
	PartSize        int64
	Backend         string
	LogLevel        string
}

// Load resolves the configuration. overrides holds explicitly set flags by
// key; envFile names an optional .env file on filesystem, ignored when
// missing. Credentials are not validated here.
func Load(filesystem billy.Filesystem, envFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPartSize, s3types.DefaultPartSize)
	v.SetDefault(KeyBackend, BackendAWS)
	v.SetDefault(KeyLogLevel, "info")

	if envFile != "" {
		if err := loadEnvFile(v, filesystem, envFile); err != nil {
			return nil, err
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{
		Credentials: credentials.Credentials{
			Endpoint:        v.GetString(KeyEndpoint),
			AccessKeyID:     v.GetString(KeyAccessKey),
			SecretAccessKey: v.GetString(KeySecretKey),
			Region:          v.GetString(KeyRegion),
		},
		CredentialsFile: v.GetString(KeyCredentials),
		Bucket:          v.GetString(KeyBucket),
		PartSize:        int64(v.GetSizeInBytes(KeyPartSize)),
		Backend:         strings.ToLower(v.GetString(KeyBackend)),
		LogLevel:        v.GetString(KeyLogLevel),
	}

	if cfg.CredentialsFile != "" {
		fromFile, err := credentials.LoadFile(filesystem, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		cfg.Credentials = merge(cfg.Credentials, fromFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that do not involve credentials.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAWS, BackendMinio:
	default:
		return hcperrors.InvalidInput("loadConfig",
			fmt.Sprintf("backend must be %q or %q, got %q", BackendAWS, BackendMinio, c.Backend))
	}
	if c.PartSize <= 0 {
		return hcperrors.InvalidInput("loadConfig", "part size must be positive")
	}
	return nil
}

// loadEnvFile registers the HCP_* entries of a .env file as defaults so
// that real environment variables and flags win over them.
func loadEnvFile(v *viper.Viper, filesystem billy.Filesystem, path string) error {
	f, err := filesystem.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return hcperrors.NewCode("loadConfig", hcperrors.CodeUnreadable, err).WithPath(path)
	}
	defer f.Close()

	entries, err := godotenv.Parse(f)
	if err != nil {
		return hcperrors.NewCode("loadConfig", hcperrors.CodeInvalidInput, err).
			WithPath(path).
			WithMessage("malformed env file")
	}

	prefix := EnvPrefix + "_"
	for name, value := range entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		v.SetDefault(strings.ToLower(strings.TrimPrefix(name, prefix)), value)
	}
	return nil
}

// merge fills the empty fields of c from file.
func merge(c, file credentials.Credentials) credentials.Credentials {
	if c.Endpoint == "" {
		c.Endpoint = file.Endpoint
	}
	if c.AccessKeyID == "" {
		c.AccessKeyID = file.AccessKeyID
	}
	if c.SecretAccessKey == "" {
		c.SecretAccessKey = file.SecretAccessKey
	}
	if c.Region == "" {
		c.Region = file.Region
	}
	return c
}
