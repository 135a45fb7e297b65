// Package logging builds the slog loggers used across panelsync.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a structured logger for component writing to stderr.
// format is "json" or "text"; level is a slog level name.
func New(component, level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, component, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "panelsync"),
	)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// WithPanel returns a logger with panel fields.
func WithPanel(l *slog.Logger, panelID, name string) *slog.Logger {
	return OrDiscard(l).With(
		slog.String("panel_id", panelID),
		slog.String("widget", name),
	)
}

// WithInput returns a logger with input fields.
func WithInput(l *slog.Logger, name string, kind string) *slog.Logger {
	return OrDiscard(l).With(
		slog.String("input", name),
		slog.String("input_kind", kind),
	)
}
