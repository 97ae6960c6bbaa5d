package procmon

import (
	"time"

	"github.com/CerberusV1/proc-monitor/internal/config"
	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// DefaultShutdownTimeout is the default timeout for graceful shutdown.
// This can be overridden via Options.ShutdownTimeout.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures the Instance behavior.
type Options struct {
	// ShutdownTimeout sets the maximum time to wait for graceful shutdown.
	// Zero means use DefaultShutdownTimeout (5 seconds).
	ShutdownTimeout time.Duration

	// Logger sets a custom logger for debug/info messages.
	// If nil, no logging is performed.
	Logger Logger

	// Metrics sets a custom metrics collector for operational metrics.
	// If nil, DefaultMetrics() is used.
	Metrics *Metrics

	// Accounts resolves owner uids. If nil, the host account database is used.
	Accounts monitor.AccountResolver

	// Environ replaces the process environment for PROC_MONITOR_* overrides.
	// Nil reads the process environment.
	Environ map[string]string

	// Adjust is applied to every loaded configuration, after environment
	// overrides and before validation. Command-line flags use it so that
	// they survive a reload.
	Adjust func(*config.Config)

	// WatchConfig enables automatic configuration hot-reloading when the
	// configuration file changes on disk.
	WatchConfig bool

	// WatchDebounce sets the debounce interval for file change events.
	// Zero means use the default (500ms).
	WatchDebounce time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		ShutdownTimeout: 0, // Use DefaultShutdownTimeout
		WatchDebounce:   0, // Use DefaultWatchDebounce
	}
}

// Logger interface for custom logging.
// It follows the slog-style signature for compatibility with Go's structured logging.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}
