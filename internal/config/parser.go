// Package config provides configuration parsing for proc-monitor.
// This file implements the unified parser that auto-detects the configuration
// format and the layered loader.

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
)

// appName names the configuration directory under the XDG config home.
const appName = "proc-monitor"

// DefaultPath returns $XDG_CONFIG_HOME/proc-monitor/config.lua.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.lua")
}

// Parser provides a unified interface for parsing configuration files.
// It detects whether content uses the legacy or the Lua format.
type Parser struct {
	legacyParser *LegacyParser
	luaParser    *LuaConfigParser
}

// NewParser creates a new Parser that can handle both formats.
func NewParser() (*Parser, error) {
	luaParser, err := NewLuaConfigParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create Lua parser: %w", err)
	}

	return &Parser{
		legacyParser: NewLegacyParser(),
		luaParser:    luaParser,
	}, nil
}

// ParseFile reads and parses a configuration file, auto-detecting the format.
func (p *Parser) ParseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return p.Parse(content)
}

// Parse parses configuration content, auto-detecting the format.
func (p *Parser) Parse(content []byte) (*Config, error) {
	if IsLuaConfig(content) {
		return p.luaParser.Parse(content)
	}
	return p.legacyParser.Parse(content)
}

// luaConfigPattern matches "procmon.config" followed by optional whitespace
// and "=" at the start of a line, which marks the Lua format.
var luaConfigPattern = regexp.MustCompile(`(?m)^\s*procmon\.config\s*=`)

// IsLuaConfig reports whether content is a Lua configuration.
func IsLuaConfig(content []byte) bool {
	return luaConfigPattern.Match(content)
}

// ParseFromFS reads and parses a configuration file from a filesystem.
func (p *Parser) ParseFromFS(fsys fs.FS, path string) (*Config, error) {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS %s: %w", path, err)
	}

	return p.Parse(content)
}

// ParseReader parses configuration from an io.Reader.
// The format parameter must be "legacy" or "lua".
func (p *Parser) ParseReader(r io.Reader, format string) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch format {
	case "lua":
		return p.luaParser.Parse(content)
	case "legacy":
		return p.legacyParser.Parse(content)
	default:
		return nil, fmt.Errorf("unknown format: %s (expected 'lua' or 'legacy')", format)
	}
}

// Close releases resources associated with the parser.
func (p *Parser) Close() error {
	if p.luaParser != nil {
		return p.luaParser.Close()
	}
	return nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is the configuration file. Empty means DefaultPath, which may be
	// absent.
	Path string
	// Environ replaces the process environment for overrides when non-nil.
	Environ map[string]string
}

// Load builds a Config from defaults, the configuration file, ${VAR}
// expansion and PROC_MONITOR_* overrides, in that order. The result is not
// validated, so callers can apply command-line flags first.
func Load(opts LoadOptions) (*Config, string, error) {
	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg, err := loadFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		defaults := DefaultConfig()
		cfg, path = &defaults, ""
	default:
		return nil, path, err
	}

	ExpandEnvConfig(cfg)
	if err := ApplyEnvOverrides(cfg, opts.Environ); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func loadFile(path string) (*Config, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	defer parser.Close()
	return parser.ParseFile(path)
}
