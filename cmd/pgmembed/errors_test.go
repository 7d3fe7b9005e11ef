package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/julianknutsen/pgmembed/internal/artifact"
	"github.com/julianknutsen/pgmembed/internal/config"
	"github.com/julianknutsen/pgmembed/internal/frontend"
)

func TestHintedError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("something failed")
	h := &HintedError{Err: inner, Hint: "try again"}
	if !errors.Is(h, inner) {
		t.Error("HintedError should unwrap to inner error")
	}
}

func TestHintedError_ErrorString(t *testing.T) {
	h := &HintedError{Err: fmt.Errorf("boom"), Hint: "fix it"}
	if h.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", h.Error(), "boom")
	}
}

func TestHintWrap_Nil(t *testing.T) {
	if got := hintWrap(nil); got != nil {
		t.Errorf("hintWrap(nil) = %v, want nil", got)
	}
}

func TestHintWrap_Unknown(t *testing.T) {
	err := fmt.Errorf("disk on fire")
	if got := hintWrap(err); got != err {
		t.Errorf("hintWrap should pass unknown errors through, got %v", got)
	}
}

func TestHintWrap_Known(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"source not found", fmt.Errorf("%w: web/dist/index.html", artifact.ErrSourceNotFound), "pgmembed build"},
		{"write error", &artifact.WriteError{Path: "include/x.h", Err: errors.New("read-only")}, "writable"},
		{"tool not found", fmt.Errorf("%w: npm", frontend.ErrToolNotFound), "pgmembed doctor"},
		{"build failed", &frontend.BuildError{Command: "npm run build", ExitCode: 1, Err: errors.New("exit status 1")}, "--verbose"},
		{"invalid config", fmt.Errorf("%w: bad symbol", config.ErrInvalidConfig), "pgmembed init --force"},
		{"malformed header", artifact.ErrMalformedHeader, "pgmembed embed"},
		{"stale header", errStaleHeader, "pgmembed build"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hintWrap(tt.err)
			var h *HintedError
			if !errors.As(err, &h) {
				t.Fatalf("expected HintedError, got %T", err)
			}
			if !strings.Contains(h.Hint, tt.want) {
				t.Errorf("hint = %q, want to contain %q", h.Hint, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("hinted error should unwrap to the original")
			}
		})
	}
}

func TestHintWrap_Idempotent(t *testing.T) {
	once := hintWrap(artifact.ErrMalformedHeader)
	if twice := hintWrap(once); twice != once {
		t.Error("hintWrap should not re-wrap a HintedError")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{artifact.ErrSourceNotFound, "source_not_found"},
		{hintWrap(&artifact.WriteError{Path: "x.h", Err: errors.New("denied")}), "write"},
		{fmt.Errorf("%w: pnpm", frontend.ErrToolNotFound), "tool_not_found"},
		{&frontend.BuildError{Command: "npm run build", ExitCode: 2}, "build"},
		{fmt.Errorf("%w: bad symbol", config.ErrInvalidConfig), "config"},
		{fmt.Errorf("front-end build interrupted: %w", context.Canceled), "interrupted"},
		{errors.New("disk on fire"), "other"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
