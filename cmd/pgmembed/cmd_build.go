package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/julianknutsen/pgmembed/internal/frontend"
	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/julianknutsen/pgmembed/internal/telemetry"
	"github.com/spf13/cobra"
)

// pipelineMode selects how the build pipeline reports progress.
type pipelineMode int

const (
	// modeDirect is an operator at a terminal: spinner, captured bundler
	// output, styled summary on stdout.
	modeDirect pipelineMode = iota

	// modeHook runs inside a firmware build: bundler output streamed to
	// stderr, plain log lines, no animation.
	modeHook
)

func (m pipelineMode) String() string {
	if m == modeHook {
		return "hook"
	}
	return "direct"
}

type pipelineOptions struct {
	mode      pipelineMode
	skipBuild bool
	verbose   bool
}

func newBuildCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts pipelineOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the front-end and regenerate the firmware header",
		Long: `Run the front-end build, then compress the built HTML page and write it
as a PROGMEM byte array to the header consumed by the firmware build.

The bundler output is hidden behind a spinner and shown only if the build
fails; use --verbose to stream it.

Examples:
  pgmembed build
  pgmembed build --web-dir microfinal-web
  pgmembed build --skip-build --output src/index_html.h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			opts.mode = modeDirect
			return runReported(cmd.Context(), stdout, stderr, cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.skipBuild, "skip-build", false, "Embed the existing artifact without running the front-end build")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Stream front-end build output")

	return cmd
}

// hookAction is the command the PlatformIO shim registers before buildprog.
const hookAction = "pgmembed hook --project-dir $PROJECT_DIR"

func newHookCmd(stdout, stderr io.Writer) *cobra.Command {
	var skipBuild bool

	cmd := &cobra.Command{
		Use:   "hook [targets...]",
		Short: "Pre-build hook entry point for firmware build systems",
		Long: `Entry point for a firmware build system's pre-build step.

Behaves like 'pgmembed build' but without animation or colors, streams the
bundler output to stderr, and exits non-zero on any failure so the host
build stops. Arguments passed by the host (such as build targets) are
accepted and ignored.

PlatformIO: copy scripts/pgmembed.py from the pgmembed repository into the
firmware project and add to platformio.ini:
  extra_scripts = pre:scripts/pgmembed.py

The script is two lines:
  Import("env")
  env.AddPreAction("buildprog", "` + hookAction + `")`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				slog.Debug("Ignoring host arguments", "args", args)
			}
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runReported(cmd.Context(), stdout, stderr, cfg, pipelineOptions{
				mode:      modeHook,
				skipBuild: skipBuild,
			})
		},
	}

	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Embed the existing artifact without running the front-end build")

	return cmd
}

// runReported runs the pipeline and reports a failure when sentry_dsn is set.
func runReported(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, opts pipelineOptions) error {
	rep, err := telemetry.Start(cfg.SentryDSN, version)
	if err != nil {
		slog.Warn("Failure reporting disabled", "err", err)
	}
	defer rep.Close()

	_, err = runPipeline(ctx, stdout, stderr, cfg, opts)
	rep.Capture(err, map[string]string{
		"mode":       opts.mode.String(),
		"error.kind": errorKind(err),
		"output":     filepath.Base(cfg.Output),
	})
	return err
}

// runPipeline builds the front-end (unless skipped) and embeds the artifact.
func runPipeline(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, opts pipelineOptions) (artifact.Stats, error) {
	log := slog.Default().With("mode", opts.mode.String())

	if !opts.skipBuild {
		if err := buildFrontend(ctx, stdout, stderr, cfg, opts); err != nil {
			return artifact.Stats{}, err
		}
	} else {
		log.Debug("Skipping front-end build")
	}

	stats, err := artifact.EmbedWithOptions(cfg.Input, cfg.Output, artifact.Options{Symbol: cfg.Symbol})
	if err != nil {
		return artifact.Stats{}, hintWrap(err)
	}

	if opts.mode == modeHook {
		log.Info("Embedded front-end artifact",
			"input", cfg.Input,
			"output", cfg.Output,
			"original", stats.OriginalBytes,
			"compressed", stats.CompressedBytes,
			"digest", stats.Digest[:16],
		)
		return stats, nil
	}
	printSummary(stdout, cfg, stats)
	return stats, nil
}

func buildFrontend(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, opts pipelineOptions) error {
	builder, err := frontend.NewBuilder(cfg.WebDir, cfg.BuildCommand)
	if err != nil {
		return hintWrap(err)
	}
	builder.Logger = slog.Default()

	switch {
	case opts.mode == modeHook:
		slog.Info("Building front-end", "dir", cfg.WebDir, "command", builder.String())
		builder.Stdout = stderr
		builder.Stderr = stderr
		return hintWrap(builder.Build(ctx))
	case opts.verbose:
		fmt.Fprintf(stdout, "Building front-end: %s\n", style.Dim.Render(builder.String()))
		builder.Stdout = stdout
		builder.Stderr = stderr
		return hintWrap(builder.Build(ctx))
	}

	sp := style.StartSpinner(stdout, "Building front-end ("+builder.String()+")...")
	if err := builder.Build(ctx); err != nil {
		sp.Finish(false, "Front-end build failed")
		return hintWrap(err)
	}
	sp.Finish(true, "Front-end built")
	return nil
}

func printSummary(w io.Writer, cfg *config.Config, stats artifact.Stats) {
	rel := func(p string) string {
		if wd, err := filepath.Abs("."); err == nil {
			if r, err := filepath.Rel(wd, p); err == nil && !filepath.IsAbs(r) && len(r) < len(p) {
				return r
			}
		}
		return p
	}
	fmt.Fprintf(w, "%s Wrote %s\n", style.Success.Render(style.IconPass), style.Info.Render(rel(cfg.Output)))
	fmt.Fprintf(w, "  Original size:   %d bytes %s\n", stats.OriginalBytes, style.Dim.Render("("+style.FormatBytes(stats.OriginalBytes)+")"))
	fmt.Fprintf(w, "  Compressed size: %d bytes %s\n", stats.CompressedBytes,
		style.Dim.Render(fmt.Sprintf("(%s, %.1f%%)", style.FormatBytes(stats.CompressedBytes), stats.Ratio()*100)))
	fmt.Fprintf(w, "  Digest:          %s\n", style.Dim.Render(stats.Digest))
}
