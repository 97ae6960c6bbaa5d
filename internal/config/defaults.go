package config

import (
	"time"

	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// Default values for configuration options.
const (
	// DefaultRoot is the standard procfs mount point.
	DefaultRoot = monitor.DefaultRoot
	// DefaultSampleInterval is the default CPU sampling window (1 second).
	DefaultSampleInterval = time.Second
	// DefaultRefreshInterval is the default time between refreshes (1 second).
	DefaultRefreshInterval = time.Second
	// DefaultSortKey orders rows by PID.
	DefaultSortKey = "pid"
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Root:            DefaultRoot,
		SampleInterval:  DefaultSampleInterval,
		RefreshInterval: DefaultRefreshInterval,
		PageSize:        0,
		LegacyPIDMatch:  false,
		SortKey:         DefaultSortKey,
		LogLevel:        DefaultLogLevel,
	}
}
