// Package logger sets up the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Setup builds the default logger. Empty level or format fall back to the
// MGBBHO_LOG_LEVEL and MGBBHO_LOG_FORMAT environment variables; output
// goes to stderr when w is nil.
func Setup(level, format string, w io.Writer) *slog.Logger {
	if level == "" {
		level = os.Getenv("MGBBHO_LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("MGBBHO_LOG_FORMAT")
	}
	if w == nil {
		w = os.Stderr
	}

	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	defaultLogger = slog.New(h)
	return defaultLogger
}

// L returns the default logger, setting it up from the environment on
// first use.
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup("", "", nil)
	}
	return defaultLogger
}
