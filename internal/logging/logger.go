// Package logging builds the slog loggers used by tools and the invoker.
// Output always goes to stderr-like writers so stdout stays reserved for the
// tool's JSON result.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

// EnvVar enables tool-side logging when set to a level name.
const EnvVar = "TRELLIS_TOOL_LOG"

// New creates a tint-formatted logger writing to w. The "error" key is
// normalized to "err".
func New(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to levels.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// FromEnv returns a logger enabled by TRELLIS_TOOL_LOG. When the variable is
// unset or holds an unknown level the logger is a no-op, keeping the tool's
// stderr empty on success.
func FromEnv(lookup func(string) (string, bool), w io.Writer) *slog.Logger {
	raw, ok := lookup(EnvVar)
	if !ok {
		return NewNop()
	}
	level, ok := ParseLevel(raw)
	if !ok {
		return NewNop()
	}
	return New(w, level, color.NoColor)
}
