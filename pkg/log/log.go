// Package log configures structured logging for the masszap binaries. All
// services log through slog with a "module" attribute so API, scheduler and
// engine lines can be told apart in a merged stream.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide text handler. Unknown level names fall
// back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with the service module name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
