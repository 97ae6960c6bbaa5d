// Package config provides configuration parsing for proc-monitor.
// This file implements environment variable expansion and overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every override variable name, for example
// PROC_MONITOR_SAMPLE_INTERVAL=500ms.
const EnvPrefix = "PROC_MONITOR_"

// envVarPattern matches environment variable references in configuration values.
// Supports formats:
//   - ${VAR_NAME} - standard shell-like format
//   - ${VAR_NAME:-default} - with default value if unset or empty
//   - $VAR_NAME - simple format (word characters only)
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// ExpandEnv expands environment variable references in a string.
// Unknown or unset variables without defaults are replaced with empty string.
func ExpandEnv(s string) string {
	return expandWith(s, os.Getenv)
}

func expandWith(s string, getenv func(string) string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			inner := match[2 : len(match)-1]

			// VAR:-default
			if idx := strings.Index(inner, ":-"); idx >= 0 {
				if val := getenv(inner[:idx]); val != "" {
					return val
				}
				return inner[idx+2:]
			}
			return getenv(inner)
		}
		return getenv(match[1:])
	})
}

// ExpandEnvConfig expands environment variables in the path-like string
// values of cfg: Root and LogFile. The filter text is left literal, since
// '$' has no special meaning there.
func ExpandEnvConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Root = ExpandEnv(cfg.Root)
	cfg.LogFile = ExpandEnv(cfg.LogFile)
}

// ApplyEnvOverrides sets fields from PROC_MONITOR_* variables. Unset
// variables leave the field unchanged. A nil environ reads the process
// environment. Durations use Go syntax ("750ms", "2s").
func ApplyEnvOverrides(cfg *Config, environ map[string]string) error {
	if cfg == nil {
		return nil
	}
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parsing %s* environment: %w", EnvPrefix, err)
	}
	return nil
}
