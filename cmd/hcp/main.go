// Command hcp moves files to and from an HCP (or other S3-compatible)
// bucket and checks local files against stored ETags.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp(&environment{
		fs:          osfs.New(""),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		openStorage: openStorage,
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}
