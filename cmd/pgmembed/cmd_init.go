package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/spf13/cobra"
)

func newInitCmd(stdout, _ io.Writer) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a pgmembed.yaml with the default settings",
		Long: `Write pgmembed.yaml in the project directory with the built-in defaults,
overridden by any --web-dir, --input, --output, --build-command or --symbol
flags given.

Examples:
  pgmembed init
  pgmembed init --web-dir microfinal-web --build-command "pnpm build"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir, _ := cmd.Flags().GetString("project-dir")
			cfg := config.Default()
			cfg.Merge(flagOverrides(cmd))
			return runInit(stdout, filepath.Join(projectDir, config.FileName), cfg, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(stdout io.Writer, path string, cfg *config.Config, force bool) error {
	if err := cfg.Validate(); err != nil {
		return hintWrap(err)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(stdout, "%s Wrote %s\n", style.Success.Render(style.IconPass), path)
	return nil
}
