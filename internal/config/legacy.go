// Package config provides configuration parsing for proc-monitor.
// This file implements the legacy "key value" line format.

package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LegacyParser parses the legacy configuration format: one "key value"
// directive per line, with '#' comments. A bare boolean key means true.
type LegacyParser struct{}

// NewLegacyParser creates a new LegacyParser instance.
func NewLegacyParser() *LegacyParser {
	return &LegacyParser{}
}

// Parse parses a legacy configuration from content bytes.
// It returns a Config with parsed values or an error if parsing fails.
func (p *LegacyParser) Parse(content []byte) (*Config, error) {
	cfg := DefaultConfig()
	scanner := bufio.NewScanner(strings.NewReader(string(content)))

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if err := p.parseDirective(&cfg, trimmed, lineNum); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}
	return &cfg, nil
}

// parseDirective parses a single configuration directive line.
// Format: "key value" or "key" (for boolean flags).
func (p *LegacyParser) parseDirective(cfg *Config, line string, lineNum int) error {
	parts := strings.Fields(line)
	key := strings.ToLower(parts[0])

	var value string
	if len(parts) > 1 {
		value = strings.TrimSpace(line[len(parts[0]):])
	}

	switch key {
	case "root":
		cfg.Root = value
	case "filter":
		cfg.Filter = unquote(value)
	case "sort":
		cfg.SortKey = value
	case "log_level":
		cfg.LogLevel = value
	case "log_file":
		cfg.LogFile = unquote(value)

	case "legacy_pid_match":
		cfg.LegacyPIDMatch = value == "" || parseBool(value)
	case "sort_reverse":
		cfg.SortReverse = value == "" || parseBool(value)

	case "sample_interval":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("line %d: invalid sample_interval: %w", lineNum, err)
		}
		cfg.SampleInterval = d
	case "refresh_interval", "update_interval":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("line %d: invalid %s: %w", lineNum, key, err)
		}
		cfg.RefreshInterval = d

	case "page_size":
		n, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("line %d: invalid page_size: %w", lineNum, err)
		}
		cfg.PageSize = n

	default:
		// Unknown directives are ignored for forward compatibility.
	}
	return nil
}

// parseBool parses a boolean value from common string representations.
// Accepts: yes, no, true, false, 1, 0
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "true", "1", "on":
		return true
	default:
		return false
	}
}

// parseSeconds parses an interval given as seconds ("1.5") or as a Go
// duration ("1500ms").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// parseInt parses an int from a string.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	return strconv.Atoi(s)
}

// unquote strips one pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
