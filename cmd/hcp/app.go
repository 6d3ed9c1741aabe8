package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/input-output-hk/catalyst-forge-libs/hcp"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/config"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/minio"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

// exitMismatch is the exit status of a verify whose file differs from the object.
const exitMismatch = 2

// store is a Storage that can also fingerprint files the way it uploads them.
type store interface {
	hcp.Storage
	Verifier() *etag.Verifier
}

type storageOpener func(ctx context.Context, cfg *config.Config, opts ...s3types.Option) (store, error)

// environment carries everything the commands touch outside the process.
type environment struct {
	fs          billy.Filesystem
	stdout      io.Writer
	stderr      io.Writer
	openStorage storageOpener

	cfg    *config.Config
	logger zerolog.Logger
}

// flagKeys maps global flags to configuration keys.
var flagKeys = map[string]string{
	"endpoint":    config.KeyEndpoint,
	"access-key":  config.KeyAccessKey,
	"secret-key":  config.KeySecretKey,
	"credentials": config.KeyCredentials,
	"bucket":      config.KeyBucket,
	"region":      config.KeyRegion,
	"part-size":   config.KeyPartSize,
	"backend":     config.KeyBackend,
	"log-level":   config.KeyLogLevel,
}

func newApp(env *environment) *cli.App {
	return &cli.App{
		Name:      "hcp",
		Usage:     "Transfer and verify files in an HCP bucket",
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Usage: "storage endpoint URL"},
			&cli.StringFlag{Name: "access-key", Usage: "access key ID"},
			&cli.StringFlag{Name: "secret-key", Usage: "secret access key"},
			&cli.StringFlag{Name: "credentials", Usage: "path to a keys.json credentials file"},
			&cli.StringFlag{Name: "bucket", Usage: "bucket to operate on"},
			&cli.StringFlag{Name: "region", Usage: "signing region"},
			&cli.StringFlag{Name: "part-size", Usage: "multipart part size, e.g. 8388608 or 8mb"},
			&cli.StringFlag{Name: "backend", Usage: "storage client: aws or minio"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional file of HCP_* variables"},
		},
		Before: env.load,
		// Exit codes are applied by main.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a local file",
				ArgsUsage: "<local> <key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content-type", Usage: "override the detected content type"},
					&cli.StringSliceFlag{Name: "meta", Usage: "user metadata as name=value, repeatable"},
				},
				Action: env.upload,
			},
			{
				Name:      "download",
				Usage:     "Download an object to a local file",
				ArgsUsage: "<key> <local>",
				Action:    env.download,
			},
			{
				Name:      "search",
				Usage:     "List objects whose keys start with a prefix",
				ArgsUsage: "[prefix]",
				Action:    env.search,
			},
			{
				Name:      "delete",
				Usage:     "Delete an object",
				ArgsUsage: "<key>",
				Action:    env.delete,
			},
			{
				Name:      "verify",
				Usage:     "Check that a local file matches a stored object",
				ArgsUsage: "<local> <key>",
				Action:    env.verify,
			},
			{
				Name:      "fingerprint",
				Usage:     "Print the S3 ETag a local file would get",
				ArgsUsage: "<local>",
				Action:    env.fingerprint,
			},
		},
	}
}

func (e *environment) load(c *cli.Context) error {
	overrides := map[string]any{}
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	cfg, err := config.Load(e.fs, c.String("env-file"), overrides)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, e.stderr)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	return nil
}

// connect opens the configured backend and attaches the configured bucket.
func (e *environment) connect(c *cli.Context) (store, error) {
	if e.cfg.Bucket == "" {
		return nil, hcperrors.NewCode("connect", hcperrors.CodeInvalidInput, hcperrors.ErrNoBucket).
			WithMessage("set --bucket or HCP_BUCKET")
	}

	s, err := e.openStorage(c.Context, e.cfg,
		hcp.WithPartSize(e.cfg.PartSize),
		hcp.WithFilesystem(e.fs),
		hcp.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	if err := s.AttachBucket(c.Context, e.cfg.Bucket); err != nil {
		return nil, err
	}
	return s, nil
}

// openStorage builds the backend named by cfg.Backend.
func openStorage(ctx context.Context, cfg *config.Config, opts ...s3types.Option) (store, error) {
	if cfg.Backend == config.BackendMinio {
		return minio.New(cfg.Credentials, opts...)
	}
	return hcp.New(ctx, cfg.Credentials, opts...)
}

func args(c *cli.Context, names ...string) ([]string, error) {
	if c.NArg() != len(names) {
		return nil, hcperrors.InvalidInput(c.Command.Name,
			fmt.Sprintf("expected arguments %s, got %d", strings.Join(names, " "), c.NArg()))
	}
	return c.Args().Slice(), nil
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, hcperrors.InvalidInput("upload", fmt.Sprintf("metadata %q is not name=value", pair))
		}
		metadata[name] = value
	}
	return metadata, nil
}
