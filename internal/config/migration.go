// Package config provides configuration parsing and migration for proc-monitor.
// This file converts legacy "key value" configurations to the Lua format.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Migrator converts a Config into Lua configuration source.
type Migrator struct {
	// includeComments adds explanatory comments to the output.
	includeComments bool
	// preserveDefaults includes settings even when they match defaults.
	preserveDefaults bool
}

// MigratorOption is a functional option for configuring a Migrator.
type MigratorOption func(*Migrator)

// WithComments enables adding explanatory comments to the Lua output.
func WithComments(include bool) MigratorOption {
	return func(m *Migrator) {
		m.includeComments = include
	}
}

// WithDefaults includes settings that match default values in the output.
func WithDefaults(preserve bool) MigratorOption {
	return func(m *Migrator) {
		m.preserveDefaults = preserve
	}
}

// NewMigrator creates a new Migrator with the given options.
func NewMigrator(opts ...MigratorOption) *Migrator {
	m := &Migrator{
		includeComments:  true,
		preserveDefaults: false,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MigrateToLua renders cfg as a procmon.config table.
func (m *Migrator) MigrateToLua(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var buf bytes.Buffer
	if m.includeComments {
		buf.WriteString("-- proc-monitor configuration\n")
		buf.WriteString("-- Converted from the legacy key/value format.\n")
		buf.WriteString("-- Intervals are in seconds.\n\n")
	}

	buf.WriteString("procmon.config = {\n")
	m.writeConfigTable(&buf, cfg)
	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

func (m *Migrator) writeConfigTable(buf *bytes.Buffer, cfg *Config) {
	d := DefaultConfig()

	if m.keep(cfg.Root != d.Root) {
		m.writeString(buf, "root", cfg.Root)
	}
	if m.keep(cfg.SampleInterval != d.SampleInterval) {
		m.writeSeconds(buf, "sample_interval", cfg.SampleInterval)
	}
	if m.keep(cfg.RefreshInterval != d.RefreshInterval) {
		m.writeSeconds(buf, "refresh_interval", cfg.RefreshInterval)
	}
	if m.keep(cfg.PageSize != d.PageSize) {
		m.writeInt(buf, "page_size", cfg.PageSize)
	}
	if m.keep(cfg.LegacyPIDMatch != d.LegacyPIDMatch) {
		m.writeBool(buf, "legacy_pid_match", cfg.LegacyPIDMatch)
	}
	if m.keep(cfg.Filter != d.Filter) {
		m.writeString(buf, "filter", cfg.Filter)
	}
	if m.keep(cfg.SortKey != d.SortKey) {
		m.writeString(buf, "sort", cfg.SortKey)
	}
	if m.keep(cfg.SortReverse != d.SortReverse) {
		m.writeBool(buf, "sort_reverse", cfg.SortReverse)
	}
	if m.keep(cfg.LogLevel != d.LogLevel) {
		m.writeString(buf, "log_level", cfg.LogLevel)
	}
	if m.keep(cfg.LogFile != d.LogFile) {
		m.writeString(buf, "log_file", cfg.LogFile)
	}
}

func (m *Migrator) keep(changed bool) bool {
	return changed || m.preserveDefaults
}

func (m *Migrator) writeBool(buf *bytes.Buffer, name string, value bool) {
	fmt.Fprintf(buf, "    %s = %t,\n", name, value)
}

// writeString uses %q; Go escapes are a subset Lua accepts for printable text.
func (m *Migrator) writeString(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "    %s = %s,\n", name, strconv.Quote(value))
}

func (m *Migrator) writeInt(buf *bytes.Buffer, name string, value int) {
	fmt.Fprintf(buf, "    %s = %d,\n", name, value)
}

func (m *Migrator) writeSeconds(buf *bytes.Buffer, name string, d time.Duration) {
	fmt.Fprintf(buf, "    %s = %s,\n", name, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
}

// MigrateLegacyFile reads a legacy configuration file and returns Lua source.
func MigrateLegacyFile(path string, opts ...MigratorOption) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy config %s: %w", path, err)
	}
	return MigrateLegacyContent(content, opts...)
}

// MigrateLegacyContent converts legacy configuration content to Lua source.
func MigrateLegacyContent(content []byte, opts ...MigratorOption) ([]byte, error) {
	cfg, err := NewLegacyParser().Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse legacy config: %w", err)
	}
	return NewMigrator(opts...).MigrateToLua(cfg)
}
