// Package logging adapts log/slog to the domain Logger interface.
package logging

import (
	"io"
	"log/slog"

	"github.com/ochairo/tincture/internal/domain/interfaces"
)

// SlogLogger implements interfaces.Logger on top of a *slog.Logger
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an existing slog logger
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// NewTextLogger creates a text logger writing to w at the given level
func NewTextLogger(w io.Writer, level slog.Level) *SlogLogger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{logger: slog.New(handler)}
}

// Level maps the CLI verbosity flags to a slog level. Stage progress is
// printed by the console printer, so by default only warnings are logged.
func Level(quiet, debug bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (s *SlogLogger) Debug(msg string, fields ...interfaces.Field) {
	s.logger.Debug(msg, attrs(fields)...)
}

func (s *SlogLogger) Info(msg string, fields ...interfaces.Field) {
	s.logger.Info(msg, attrs(fields)...)
}

func (s *SlogLogger) Warn(msg string, fields ...interfaces.Field) {
	s.logger.Warn(msg, attrs(fields)...)
}

func (s *SlogLogger) Error(msg string, fields ...interfaces.Field) {
	s.logger.Error(msg, attrs(fields)...)
}

// With returns a logger that attaches fields to every record
func (s *SlogLogger) With(fields ...interfaces.Field) interfaces.Logger {
	return &SlogLogger{logger: s.logger.With(attrs(fields)...)}
}

func attrs(fields []interfaces.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
