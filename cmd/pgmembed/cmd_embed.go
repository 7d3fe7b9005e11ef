package main

import (
	"io"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/spf13/cobra"
)

func newEmbedCmd(stdout, _ io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <input> <output>",
		Short: "Compress a file into a PROGMEM header without building",
		Long: `Compress <input> at maximum gzip level and write it to <output> as a
PROGMEM byte array. Missing directories in the output path are created.
Only --symbol is taken from the configuration.

Examples:
  pgmembed embed web/dist/index.html include/index_html.h
  pgmembed embed setup.html include/setup_html.h --symbol setup_html_gz`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runEmbed(stdout, args[0], args[1], cfg.Symbol)
		},
	}
}

func runEmbed(stdout io.Writer, input, output, symbol string) error {
	stats, err := artifact.EmbedWithOptions(input, output, artifact.Options{Symbol: symbol})
	if err != nil {
		return hintWrap(err)
	}
	printSummary(stdout, &config.Config{Output: output}, stats)
	return nil
}
