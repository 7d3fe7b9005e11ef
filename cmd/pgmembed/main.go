// pgmembed builds a web front-end and embeds the resulting HTML page as a
// gzip-compressed PROGMEM array in a C header for firmware builds.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/spf13/cobra"
)

// Version metadata injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// non-zero exit. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// run executes the pgmembed CLI with the given args.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "pgmembed: %v\n", err)
			var h *HintedError
			if errors.As(err, &h) && h.Hint != "" {
				fmt.Fprintf(stderr, "%s\n", style.Dim.Render(h.Hint))
			}
		}
		return 1
	}
	return 0
}

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "pgmembed",
		Short:         "Embed a built web front-end in a firmware header",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			fmt.Fprintf(stderr, "pgmembed: unknown command %q\n", args[0]) //nolint:errcheck // best-effort stderr
			return errExit
		},
	}
	pf := root.PersistentFlags()
	pf.String("project-dir", ".", "Firmware project directory; relative paths resolve against it")
	pf.String("config", "", "Config file (default <project-dir>/pgmembed.yaml)")
	pf.String("web-dir", "", "Front-end project directory the build command runs in")
	pf.String("input", "", "Built HTML artifact (default <web-dir>/dist/index.html)")
	pf.String("output", "", "Generated header path")
	pf.String("build-command", "", "Front-end build command (e.g. \"npm run build\")")
	pf.String("symbol", "", "Name of the PROGMEM array in the header")
	pf.String("color", "auto", "Color output: always, auto, never")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		colorMode, _ := cmd.Flags().GetString("color")
		switch colorMode {
		case "always", "auto", "never":
		default:
			return fmt.Errorf("invalid --color value %q: must be always, auto, or never", colorMode)
		}
		// Host build logs are plain text even when they pass a TTY through.
		if cmd.Name() == "hook" {
			colorMode = "never"
		}
		style.SetColorMode(colorMode)
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := newLogger(stderr, level, cmd.Name() != "hook")
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	}

	root.AddCommand(
		newBuildCmd(stdout, stderr),
		newHookCmd(stdout, stderr),
		newEmbedCmd(stdout, stderr),
		newVerifyCmd(stdout, stderr),
		newInitCmd(stdout, stderr),
		newDoctorCmd(stdout, stderr),
		newPreviewCmd(stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}
