package procmon

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// SlogAdapter wraps a *slog.Logger to implement the Logger interface.
//
// Example:
//
//	opts := procmon.DefaultOptions()
//	opts.Logger = procmon.NewSlogAdapter(slog.Default())
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a Logger adapter from a *slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug logs a debug-level message with optional key-value pairs.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info-level message with optional key-value pairs.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error-level message with optional key-value pairs.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// NewHandler returns a charmbracelet/log text handler writing to w at level.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Prefix:          "proc-monitor",
		ReportTimestamp: true,
	})
}

// DefaultLogger returns a Logger that writes human-readable lines to stderr
// at Info level.
func DefaultLogger() Logger {
	return NewSlogAdapter(slog.New(NewHandler(os.Stderr, slog.LevelInfo)))
}

// DebugLogger returns a Logger configured for debugging. It reports the
// caller location of each line.
func DebugLogger() Logger {
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           charmlog.DebugLevel,
		Prefix:          "proc-monitor",
		ReportTimestamp: true,
		ReportCaller:    true,
	})
	return NewSlogAdapter(slog.New(handler))
}

// JSONLogger returns a Logger that outputs JSON-formatted logs.
func JSONLogger(w io.Writer, level slog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		Formatter:       charmlog.JSONFormatter,
	})
	return NewSlogAdapter(slog.New(handler))
}

// NopLogger returns a Logger that discards all log messages.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
