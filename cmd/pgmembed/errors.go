package main

import (
	"context"
	"errors"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/julianknutsen/pgmembed/internal/frontend"
)

// HintedError wraps an error with a user-facing recovery hint.
type HintedError struct {
	Err  error
	Hint string
}

func (h *HintedError) Error() string { return h.Err.Error() }
func (h *HintedError) Unwrap() error { return h.Err }

// errStaleHeader indicates the header no longer matches the built artifact.
var errStaleHeader = errors.New("header does not match the built artifact")

// hintWrap attaches a recovery hint to pipeline errors.
func hintWrap(err error) error {
	if err == nil {
		return nil
	}
	var h *HintedError
	if errors.As(err, &h) {
		return err
	}
	var we *artifact.WriteError
	var hint string
	switch {
	case errors.Is(err, artifact.ErrSourceNotFound):
		hint = "Build the front-end first ('pgmembed build'), or point --input at the built page."
	case errors.As(err, &we):
		hint = "Check that the output directory is writable and the disk is not full."
	case errors.Is(err, frontend.ErrToolNotFound):
		hint = "Install the build tool or set build_command in pgmembed.yaml. Run 'pgmembed doctor' to check your setup."
	case errors.Is(err, frontend.ErrBuildFailed):
		hint = "Fix the front-end build errors above; use --verbose to stream the full bundler output."
	case errors.Is(err, config.ErrInvalidConfig):
		hint = "Fix pgmembed.yaml, or run 'pgmembed init --force' to write a fresh one."
	case errors.Is(err, artifact.ErrMalformedHeader):
		hint = "Regenerate the header with 'pgmembed build' or 'pgmembed embed'."
	case errors.Is(err, errStaleHeader):
		hint = "Run 'pgmembed build' to regenerate the header."
	default:
		return err
	}
	return &HintedError{Err: err, Hint: hint}
}

// errorKind classifies err for failure reports.
func errorKind(err error) string {
	var we *artifact.WriteError
	switch {
	case errors.Is(err, artifact.ErrSourceNotFound):
		return "source_not_found"
	case errors.As(err, &we):
		return "write"
	case errors.Is(err, frontend.ErrToolNotFound):
		return "tool_not_found"
	case errors.Is(err, frontend.ErrBuildFailed):
		return "build"
	case errors.Is(err, config.ErrInvalidConfig):
		return "config"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return "other"
}
