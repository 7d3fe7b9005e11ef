// Package frontend runs the web bundler that produces the HTML artifact.
//
// The bundler is an opaque external program (npm, pnpm, bun, vite, ...).
// Builder only runs it once in the web project directory and reports
// whether it succeeded; it never retries.
package frontend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultCommand is the build command used when none is configured.
const DefaultCommand = "npm run build"

// maxOutputTail bounds how much captured bundler output is kept in errors.
const maxOutputTail = 2048

var (
	// ErrBuildFailed indicates the bundler exited non-zero.
	ErrBuildFailed = errors.New("front-end build failed")

	// ErrToolNotFound indicates the bundler executable is not on PATH.
	ErrToolNotFound = errors.New("build tool not found")

	// ErrEmptyCommand indicates the configured build command has no words.
	ErrEmptyCommand = errors.New("empty build command")
)

// BuildError carries the exit status and captured output of a failed build.
type BuildError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %q exited with status %d", ErrBuildFailed, e.Command, e.ExitCode)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Unwrap exposes both ErrBuildFailed and the underlying exec error.
func (e *BuildError) Unwrap() []error { return []error{ErrBuildFailed, e.Err} }

// ParseCommand splits a build command line into words using shell quoting
// rules, without invoking a shell.
func ParseCommand(s string) ([]string, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("parsing build command %q: %w", s, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	return words, nil
}

// Builder runs a front-end build command in a project directory.
type Builder struct {
	// Dir is the web project directory the command runs in.
	Dir string

	// Command is the argv of the build command.
	Command []string

	// Stdout and Stderr receive the bundler output. When both are nil the
	// output is captured and attached to a BuildError on failure.
	Stdout io.Writer
	Stderr io.Writer

	Logger *slog.Logger

	// lookPath is exec.LookPath unless overridden in tests.
	lookPath func(string) (string, error)
}

// NewBuilder returns a Builder for the given directory and command line.
func NewBuilder(dir, command string) (*Builder, error) {
	argv, err := ParseCommand(command)
	if err != nil {
		return nil, err
	}
	return &Builder{Dir: dir, Command: argv}, nil
}

// Tool returns the executable name of the build command.
func (b *Builder) Tool() string {
	if len(b.Command) == 0 {
		return ""
	}
	return b.Command[0]
}

// String returns the command line as a shell would display it.
func (b *Builder) String() string {
	return shellquote.Join(b.Command...)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Build runs the build command and waits for it to finish.
func (b *Builder) Build(ctx context.Context) error {
	if len(b.Command) == 0 {
		return ErrEmptyCommand
	}
	lookPath := b.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	tool, err := lookPath(b.Command[0])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, b.Command[0])
	}

	log := b.logger()
	log.Debug("Running front-end build", "dir", b.Dir, "command", b.String())
	start := time.Now()

	cmd := exec.CommandContext(ctx, tool, b.Command[1:]...)
	cmd.Dir = b.Dir

	var captured bytes.Buffer
	if b.Stdout == nil && b.Stderr == nil {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	} else {
		cmd.Stdout = b.Stdout
		cmd.Stderr = b.Stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("front-end build interrupted: %w", ctxErr)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Debug("Front-end build failed", "command", b.String(), "exit", exitCode)
		return &BuildError{
			Command:  b.String(),
			ExitCode: exitCode,
			Output:   tail(captured.String(), maxOutputTail),
			Err:      err,
		}
	}

	log.Debug("Front-end build complete", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// tail returns at most n trailing bytes of s, trimmed, starting on a line
// boundary when one is available.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
