package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/input-output-hk/catalyst-forge-libs/hcp"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/etag"
	hcperrors "github.com/input-output-hk/catalyst-forge-libs/hcp/errors"
	"github.com/input-output-hk/catalyst-forge-libs/hcp/s3types"
)

func (e *environment) upload(c *cli.Context) error {
	a, err := args(c, "<local>", "<key>")
	if err != nil {
		return err
	}
	metadata, err := parseMetadata(c.StringSlice("meta"))
	if err != nil {
		return err
	}
	s, err := e.connect(c)
	if err != nil {
		return err
	}

	opts := []s3types.UploadOption{hcp.WithMetadata(metadata)}
	if ct := c.String("content-type"); ct != "" {
		opts = append(opts, hcp.WithContentType(ct))
	}
	result, err := s.UploadFile(c.Context, a[0], a[1], opts...)
	if err != nil {
		return err
	}

	e.logger.Info().Str("key", result.Key).Int("parts", result.Parts).Dur("duration", result.Duration).Msg("uploaded")
	fmt.Fprintf(e.stdout, "%s\t%d\t%s\n", result.Key, result.Size, result.ETag)
	return nil
}

func (e *environment) download(c *cli.Context) error {
	a, err := args(c, "<key>", "<local>")
	if err != nil {
		return err
	}
	s, err := e.connect(c)
	if err != nil {
		return err
	}

	obj, err := s.GetObject(c.Context, a[0])
	if err != nil {
		return err
	}
	if obj == nil {
		return hcperrors.NewCode("download", hcperrors.CodeNotFound, hcperrors.ErrNotFound).
			WithBucket(e.cfg.Bucket).
			WithKey(a[0])
	}

	result, err := s.DownloadFile(c.Context, obj, a[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s\t%d\n", result.Path, result.Size)
	return nil
}

func (e *environment) search(c *cli.Context) error {
	if c.NArg() > 1 {
		return hcperrors.InvalidInput("search", "expected at most one prefix")
	}
	s, err := e.connect(c)
	if err != nil {
		return err
	}

	objects, err := s.SearchObjects(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	for _, obj := range objects {
		fmt.Fprintf(e.stdout, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.ETag)
	}
	return nil
}

func (e *environment) delete(c *cli.Context) error {
	a, err := args(c, "<key>")
	if err != nil {
		return err
	}
	s, err := e.connect(c)
	if err != nil {
		return err
	}
	return s.DeleteObject(c.Context, &s3types.Object{Key: a[0]})
}

func (e *environment) verify(c *cli.Context) error {
	a, err := args(c, "<local>", "<key>")
	if err != nil {
		return err
	}
	s, err := e.connect(c)
	if err != nil {
		return err
	}

	ok, err := hcp.VerifyObject(c.Context, s, s.Verifier(), a[0], a[1])
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit(fmt.Errorf("%s does not match %s: %w", a[0], a[1], hcperrors.ErrChecksumMismatch), exitMismatch)
	}
	fmt.Fprintln(e.stdout, "OK")
	return nil
}

func (e *environment) fingerprint(c *cli.Context) error {
	a, err := args(c, "<local>")
	if err != nil {
		return err
	}

	v, err := etag.New(etag.WithPartSize(e.cfg.PartSize), etag.WithFilesystem(e.fs))
	if err != nil {
		return err
	}
	fp, err := v.Fingerprint(a[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, fp)
	return nil
}
