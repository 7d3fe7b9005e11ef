package main

import (
	"fmt"
	"path/filepath"

	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/spf13/cobra"
)

// flagFields maps persistent flags onto config fields.
var flagFields = []struct {
	flag  string
	field func(*config.Config) *string
}{
	{"web-dir", func(c *config.Config) *string { return &c.WebDir }},
	{"input", func(c *config.Config) *string { return &c.Input }},
	{"output", func(c *config.Config) *string { return &c.Output }},
	{"build-command", func(c *config.Config) *string { return &c.BuildCommand }},
	{"symbol", func(c *config.Config) *string { return &c.Symbol }},
}

// loadSettings layers defaults, config files and flags, validates the
// result and resolves paths against --project-dir.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	projectDir, _ := cmd.Flags().GetString("project-dir")
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath != "" && !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(projectDir, cfgPath)
	}

	cfg, err := config.LoadLayered(projectDir, cfgPath)
	if err != nil {
		return nil, hintWrap(err)
	}

	cfg.Merge(flagOverrides(cmd))

	if err := cfg.Validate(); err != nil {
		return nil, hintWrap(err)
	}

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	return cfg.Resolve(abs), nil
}

// flagOverrides returns the config fields set on the command line.
func flagOverrides(cmd *cobra.Command) *config.Config {
	var flags config.Config
	for _, f := range flagFields {
		v, _ := cmd.Flags().GetString(f.flag)
		*f.field(&flags) = v
	}
	return &flags
}
