package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/spf13/cobra"
)

func newVerifyCmd(stdout, stderr io.Writer) *cobra.Command {
	var noSource bool

	cmd := &cobra.Command{
		Use:   "verify [header]",
		Short: "Check that a generated header decodes to the built artifact",
		Long: `Parse a generated header, check its size annotations, decompress the
embedded array, and compare it with the built front-end artifact.

Exits non-zero if the header is malformed or stale. Use --no-source to
check only that the header is self-consistent.

Examples:
  pgmembed verify
  pgmembed verify include/index_html.h --no-source`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			header := cfg.Output
			if len(args) == 1 {
				header = args[0]
			}
			source := cfg.Input
			if noSource {
				source = ""
			}
			return runVerify(stdout, stderr, header, source)
		},
	}

	cmd.Flags().BoolVar(&noSource, "no-source", false, "Skip comparison with the built artifact")

	return cmd
}

func runVerify(stdout, _ io.Writer, headerPath, sourcePath string) error {
	f, err := os.Open(headerPath)
	if err != nil {
		return fmt.Errorf("opening header: %w", err)
	}
	defer f.Close()

	h, err := artifact.Parse(f)
	if err != nil {
		return hintWrap(fmt.Errorf("%s: %w", headerPath, err))
	}
	embedded, err := h.Decompress()
	if err != nil {
		return hintWrap(fmt.Errorf("%s: %w: %v", headerPath, artifact.ErrMalformedHeader, err))
	}
	if len(embedded) != h.OriginalBytes {
		return hintWrap(fmt.Errorf("%s: %w: decompressed %d bytes, original size comment says %d",
			headerPath, artifact.ErrMalformedHeader, len(embedded), h.OriginalBytes))
	}
	fmt.Fprintf(stdout, "%s %s: %s decodes to %d bytes\n",
		style.Success.Render(style.IconPass), headerPath, h.Symbol, len(embedded))

	if sourcePath == "" {
		return nil
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return hintWrap(fmt.Errorf("%w: %s", artifact.ErrSourceNotFound, sourcePath))
		}
		return fmt.Errorf("reading artifact: %w", err)
	}
	if !bytes.Equal(source, embedded) {
		fmt.Fprintf(stdout, "%s %s differs from %s (%d bytes vs %d embedded)\n",
			style.Error.Render(style.IconFail), sourcePath, headerPath, len(source), len(embedded))
		return hintWrap(errStaleHeader)
	}
	fmt.Fprintf(stdout, "%s matches %s\n", style.Success.Render(style.IconPass), sourcePath)
	return nil
}
