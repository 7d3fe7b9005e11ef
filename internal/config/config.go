// Package config loads pgmembed project settings.
//
// Settings are layered: built-in defaults, then the user file under the
// XDG config directory, then the project file, then command-line flags.
// Later layers override earlier ones field by field; empty fields never
// override.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/frontend"
	"github.com/julianknutsen/pgmembed/internal/xdg"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up in the project directory.
const FileName = "pgmembed.yaml"

// ErrInvalidConfig indicates a config file that cannot be decoded or whose
// values are unusable.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings for one embedding pipeline.
type Config struct {
	// WebDir is the front-end project directory the build command runs in.
	WebDir string `yaml:"web_dir,omitempty"`

	// BuildCommand is the bundler invocation, e.g. "npm run build".
	BuildCommand string `yaml:"build_command,omitempty"`

	// Input is the built HTML artifact. Defaults to WebDir/dist/index.html.
	Input string `yaml:"input,omitempty"`

	// Output is the generated header consumed by the firmware build.
	Output string `yaml:"output,omitempty"`

	// Symbol names the PROGMEM array in the header.
	Symbol string `yaml:"symbol,omitempty"`

	// SentryDSN enables failure reports from build and hook runs.
	SentryDSN string `yaml:"sentry_dsn,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		WebDir:       "web",
		BuildCommand: frontend.DefaultCommand,
		Output:       filepath.Join("include", "index_html.h"),
		Symbol:       artifact.DefaultSymbol,
	}
}

// InputPath returns Input, falling back to the bundler's default output
// inside WebDir.
func (c *Config) InputPath() string {
	if c.Input != "" {
		return c.Input
	}
	return filepath.Join(c.WebDir, "dist", "index.html")
}

// Merge overrides c with every non-empty field of other.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.WebDir != "" {
		c.WebDir = other.WebDir
	}
	if other.BuildCommand != "" {
		c.BuildCommand = other.BuildCommand
	}
	if other.Input != "" {
		c.Input = other.Input
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.Symbol != "" {
		c.Symbol = other.Symbol
	}
	if other.SentryDSN != "" {
		c.SentryDSN = other.SentryDSN
	}
}

// Resolve returns a copy with relative paths anchored at projectDir and
// Input filled in.
func (c *Config) Resolve(projectDir string) *Config {
	out := *c
	out.Input = c.InputPath()
	for _, p := range []*string{&out.WebDir, &out.Input, &out.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(projectDir, *p)
		}
	}
	return &out
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate reports settings that cannot produce a usable header.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}
	if c.WebDir == "" {
		return fmt.Errorf("%w: web_dir is empty", ErrInvalidConfig)
	}
	if !identRe.MatchString(c.Symbol) {
		return fmt.Errorf("%w: symbol %q is not a C identifier", ErrInvalidConfig, c.Symbol)
	}
	if _, err := frontend.ParseCommand(c.BuildCommand); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Load reads a config file. A missing file yields an empty Config and no
// error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// LoadLayered builds the effective config for projectDir. path selects the
// project file and must exist; empty means projectDir/FileName, which is
// optional.
func LoadLayered(projectDir, path string) (*Config, error) {
	cfg := Default()

	user, err := Load(xdg.ConfigFile())
	if err != nil {
		return nil, err
	}
	cfg.Merge(user)

	if path == "" {
		path = filepath.Join(projectDir, FileName)
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	project, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(project)
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
