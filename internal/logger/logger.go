// Package logger builds the process-wide slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to stdout.  Development uses the text
// handler; every other environment gets JSON.
func New(env, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env, level string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	var h slog.Handler
	if env == "dev" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything.  Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
