// Package config provides configuration parsing for proc-monitor.
// It supports a Lua format (procmon.config = { ... }) and a legacy
// "key value" line format, environment overrides, and validation.
package config

import (
	"fmt"
	"time"

	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// Config represents the complete proc-monitor configuration. The env tags
// name the overriding variables, without the EnvPrefix.
type Config struct {
	// Root is the procfs mount point.
	Root string `env:"ROOT"`
	// SampleInterval is the length of one CPU sampling window.
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL"`
	// RefreshInterval is the period between table refreshes.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL"`
	// PageSize is the memory page size in bytes. Zero queries the host.
	PageSize int `env:"PAGE_SIZE"`
	// LegacyPIDMatch accepts process directories whose name merely contains
	// a digit.
	LegacyPIDMatch bool `env:"LEGACY_PID_MATCH"`
	// Filter is the initial filter text.
	Filter string `env:"FILTER"`
	// SortKey is one of pid, name, cpu or memory.
	SortKey string `env:"SORT"`
	// SortReverse reverses the sort order.
	SortReverse bool `env:"SORT_REVERSE"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL"`
	// LogFile receives log output when set.
	LogFile string `env:"LOG_FILE"`
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	return NewValidator().Validate(c).Error()
}

// Monitor converts the configuration into the engine's settings.
func (c *Config) Monitor() (monitor.Config, error) {
	key, err := monitor.ParseSortKey(c.SortKey)
	if err != nil {
		return monitor.Config{}, fmt.Errorf("sort: %w", err)
	}
	return monitor.Config{
		Root:            c.Root,
		SampleInterval:  c.SampleInterval,
		RefreshInterval: c.RefreshInterval,
		PageSize:        c.PageSize,
		LegacyPIDMatch:  c.LegacyPIDMatch,
		SortKey:         key,
		SortReverse:     c.SortReverse,
	}, nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
