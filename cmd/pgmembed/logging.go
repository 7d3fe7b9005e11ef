package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/julianknutsen/pgmembed/internal/style"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
)

// newLogger returns a tint logger writing to w at the named level.
// Colors follow --color and are dropped when w is not a terminal. Host build
// systems prefix their own output, so timestamps can be turned off.
func newLogger(w io.Writer, level string, timestamps bool) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid --log-level %q: must be debug, info, warn, or error", level)
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !style.ColorEnabled(f)
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) != 0 {
				return a
			}
			if !timestamps && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			// Drop empty values (unset symbol, no digest, ...).
			if v, ok := a.Value.Any().(string); ok && v == "" && a.Key != slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	})), nil
}
