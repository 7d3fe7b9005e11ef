package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/julianknutsen/pgmembed/internal/frontend"
	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/julianknutsen/pgmembed/internal/telemetry"
	"github.com/spf13/cobra"
)

func newDoctorCmd(stdout, stderr io.Writer) *cobra.Command {
	var fix, check bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the front-end and firmware project setup",
		Long: `Run diagnostic checks on the embedding setup.

Verifies the configuration, the front-end build tool, the web project
directory, the built artifact, and the generated header.

Use --fix to attempt auto-repair of fixable issues.
Use --check to exit non-zero if any warnings or failures (useful for CI).

Examples:
  pgmembed doctor
  pgmembed doctor --fix
  pgmembed doctor --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			deps := &doctorDeps{
				lookPath:    exec.LookPath,
				toolVersion: toolVersion,
				cfg:         cfg,
				cfgErr:      err,
			}
			return runDoctor(stdout, stderr, deps, fix, check)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Attempt to auto-fix issues")
	cmd.Flags().BoolVar(&check, "check", false, "Exit non-zero if any warnings or failures")

	return cmd
}

// diagnostic holds a single check result.
type diagnostic struct {
	name    string
	status  string // "pass", "warn", "fail"
	message string
	fixFunc func() error // nil if no auto-fix available
	fixHint string       // manual fix instructions
}

// doctorDeps holds injectable dependencies for testing.
type doctorDeps struct {
	lookPath    func(string) (string, error)
	toolVersion func(path string) (string, error)
	cfg         *config.Config
	cfgErr      error
}

func runDoctor(stdout, _ io.Writer, deps *doctorDeps, fix, check bool) error {
	results := runDoctorChecks(stdout, deps)

	// --fix: attempt auto-repairs.
	if fix {
		for _, d := range results {
			if (d.status == "fail" || d.status == "warn") && d.fixFunc != nil {
				fmt.Fprintf(stdout, "\n  Fixing %s...\n", d.name)
				if err := d.fixFunc(); err != nil {
					fmt.Fprintf(stdout, "    %s fix failed: %v\n", style.Error.Render(style.IconFail), err)
				} else {
					fmt.Fprintf(stdout, "    %s fixed\n", style.Success.Render(style.IconPass))
				}
			}
		}
	}

	var hints []string
	for _, d := range results {
		if d.status != "pass" && d.fixHint != "" {
			hints = append(hints, d.fixHint)
		}
	}
	if len(hints) > 0 && !fix {
		fmt.Fprintf(stdout, "\n%s\n", style.Bold.Render("Suggestions:"))
		for _, h := range hints {
			fmt.Fprintf(stdout, "  %s\n", h)
		}
	}

	// --check: exit non-zero if any issues.
	if check {
		for _, d := range results {
			if d.status == "fail" || d.status == "warn" {
				return errExit
			}
		}
	}

	return nil
}

func runDoctorChecks(stdout io.Writer, deps *doctorDeps) []diagnostic {
	// 1. config
	cfgDiag := checkConfig(stdout, deps)
	if deps.cfg == nil {
		return []diagnostic{cfgDiag}
	}

	results := []diagnostic{cfgDiag}

	// 2. build tool installed
	results = append(results, checkBuildTool(stdout, deps))

	// 3. web project
	results = append(results, checkWebDir(stdout, deps.cfg))

	// 4. built artifact
	results = append(results, checkArtifact(stdout, deps.cfg))

	// 5. output directory and header
	results = append(results, checkOutputDir(stdout, deps.cfg))
	results = append(results, checkHeader(stdout, deps.cfg))

	// 6. failure reporting, only when configured
	if deps.cfg.SentryDSN != "" {
		results = append(results, checkReporting(stdout, deps.cfg))
	}

	return results
}

func report(stdout io.Writer, d diagnostic) diagnostic {
	icon := style.Success.Render(style.IconPass)
	switch d.status {
	case "warn":
		icon = style.Warning.Render(style.IconWarn)
	case "fail":
		icon = style.Error.Render(style.IconFail)
	}
	fmt.Fprintf(stdout, "  %s %s: %s\n", icon, d.name, d.message)
	return d
}

func checkConfig(stdout io.Writer, deps *doctorDeps) diagnostic {
	if deps.cfgErr != nil {
		return report(stdout, diagnostic{
			name: "config", status: "fail", message: deps.cfgErr.Error(),
			fixHint: "Fix pgmembed.yaml, or run: pgmembed init --force",
		})
	}
	return report(stdout, diagnostic{name: "config", status: "pass", message: "ok"})
}

func checkBuildTool(stdout io.Writer, deps *doctorDeps) diagnostic {
	argv, err := frontend.ParseCommand(deps.cfg.BuildCommand)
	if err != nil {
		return report(stdout, diagnostic{name: "build tool", status: "fail", message: err.Error()})
	}
	tool := argv[0]
	toolPath, err := deps.lookPath(tool)
	if err != nil {
		return report(stdout, diagnostic{
			name: "build tool", status: "fail", message: fmt.Sprintf("%s not found in PATH", tool),
			fixHint: fmt.Sprintf("Install %s, or set build_command in pgmembed.yaml", tool),
		})
	}
	ver, err := deps.toolVersion(toolPath)
	if err != nil {
		return report(stdout, diagnostic{
			name: "build tool", status: "warn",
			message: fmt.Sprintf("%s found but '%s --version' failed: %v", tool, tool, err),
		})
	}
	return report(stdout, diagnostic{name: "build tool", status: "pass", message: fmt.Sprintf("%s %s", tool, ver)})
}

func toolVersion(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func checkWebDir(stdout io.Writer, cfg *config.Config) diagnostic {
	info, err := os.Stat(cfg.WebDir)
	if err != nil || !info.IsDir() {
		return report(stdout, diagnostic{
			name: "web project", status: "fail", message: fmt.Sprintf("%s is not a directory", cfg.WebDir),
			fixHint: "Set web_dir in pgmembed.yaml or pass --web-dir",
		})
	}
	if _, err := os.Stat(filepath.Join(cfg.WebDir, "package.json")); err != nil {
		return report(stdout, diagnostic{
			name: "web project", status: "warn", message: fmt.Sprintf("no package.json in %s", cfg.WebDir),
		})
	}
	return report(stdout, diagnostic{name: "web project", status: "pass", message: cfg.WebDir})
}

func checkArtifact(stdout io.Writer, cfg *config.Config) diagnostic {
	info, err := os.Stat(cfg.Input)
	if err != nil {
		return report(stdout, diagnostic{
			name: "artifact", status: "warn", message: fmt.Sprintf("%s not built yet", cfg.Input),
			fixHint: "Run: pgmembed build",
		})
	}
	return report(stdout, diagnostic{
		name: "artifact", status: "pass",
		message: fmt.Sprintf("%s (%s)", cfg.Input, style.FormatBytes(int(info.Size()))),
	})
}

func checkOutputDir(stdout io.Writer, cfg *config.Config) diagnostic {
	dir := filepath.Dir(cfg.Output)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return report(stdout, diagnostic{
			name: "output directory", status: "warn", message: fmt.Sprintf("%s does not exist (it will be created)", dir),
			fixFunc: func() error { return os.MkdirAll(dir, 0o755) },
		})
	}
	if err != nil || !info.IsDir() {
		return report(stdout, diagnostic{
			name: "output directory", status: "fail", message: fmt.Sprintf("%s is not a directory", dir),
		})
	}
	probe, err := os.CreateTemp(dir, ".pgmembed-probe-*")
	if err != nil {
		return report(stdout, diagnostic{
			name: "output directory", status: "fail", message: fmt.Sprintf("%s is not writable", dir),
			fixHint: fmt.Sprintf("Fix permissions on %s", dir),
		})
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return report(stdout, diagnostic{name: "output directory", status: "pass", message: dir})
}

func checkReporting(stdout io.Writer, cfg *config.Config) diagnostic {
	rep, err := telemetry.Start(cfg.SentryDSN, version)
	if err != nil {
		return report(stdout, diagnostic{
			name: "failure reporting", status: "fail", message: err.Error(),
			fixHint: "Fix or remove sentry_dsn in pgmembed.yaml",
		})
	}
	rep.Close()
	return report(stdout, diagnostic{name: "failure reporting", status: "pass", message: "sentry enabled"})
}

func checkHeader(stdout io.Writer, cfg *config.Config) diagnostic {
	regenerate := func() error {
		_, err := artifact.EmbedWithOptions(cfg.Input, cfg.Output, artifact.Options{Symbol: cfg.Symbol})
		return err
	}

	f, err := os.Open(cfg.Output)
	if err != nil {
		d := diagnostic{name: "header", status: "warn", message: fmt.Sprintf("%s not generated yet", cfg.Output)}
		if _, statErr := os.Stat(cfg.Input); statErr == nil {
			d.fixFunc = regenerate
		}
		return report(stdout, d)
	}
	defer f.Close()

	h, err := artifact.Parse(f)
	if err != nil {
		return report(stdout, diagnostic{
			name: "header", status: "fail", message: err.Error(),
			fixFunc: regenerate, fixHint: "Run: pgmembed build",
		})
	}
	if h.Symbol != cfg.Symbol {
		return report(stdout, diagnostic{
			name: "header", status: "warn",
			message: fmt.Sprintf("array is named %s, config expects %s", h.Symbol, cfg.Symbol),
			fixFunc: regenerate,
		})
	}

	source, err := os.ReadFile(cfg.Input)
	if err == nil {
		embedded, derr := h.Decompress()
		if derr != nil || string(embedded) != string(source) {
			return report(stdout, diagnostic{
				name: "header", status: "warn", message: "stale: does not match the built artifact",
				fixFunc: regenerate, fixHint: "Run: pgmembed build --skip-build",
			})
		}
	}
	return report(stdout, diagnostic{
		name: "header", status: "pass",
		message: fmt.Sprintf("%s (%d bytes compressed)", cfg.Output, h.CompressedBytes),
	})
}
