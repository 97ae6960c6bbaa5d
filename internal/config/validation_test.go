package config

import (
	"strings"
	"testing"
	"time"

	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty root", func(c *Config) { c.Root = "  " }, "root"},
		{"zero sample interval", func(c *Config) { c.SampleInterval = 0 }, "sample_interval"},
		{"negative refresh interval", func(c *Config) { c.RefreshInterval = -time.Second }, "refresh_interval"},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, "page_size"},
		{"page size not power of two", func(c *Config) { c.PageSize = 3000 }, "page_size"},
		{"unknown sort key", func(c *Config) { c.SortKey = "owner" }, "sort"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			result := NewValidator().Validate(&cfg)
			if result.IsValid() {
				t.Fatal("expected validation error")
			}
			if result.Errors[0].Field != tt.field {
				t.Errorf("error field = %q, want %q", result.Errors[0].Field, tt.field)
			}
			if err := result.Error(); err == nil || !strings.Contains(err.Error(), "validation failed") {
				t.Errorf("Error() = %v", err)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleInterval = 10 * time.Millisecond
	cfg.LegacyPIDMatch = true

	result := NewValidator().Validate(&cfg)
	if !result.IsValid() {
		t.Fatalf("warnings should not invalidate: %v", result.Error())
	}
	if len(result.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", result.Warnings)
	}

	if err := ValidateConfigStrict(&cfg); err == nil {
		t.Error("strict mode should reject warnings")
	}
	if err := ValidateConfig(&cfg); err != nil {
		t.Errorf("non-strict mode should accept warnings: %v", err)
	}
}

func TestValidateNil(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Error("nil config should be invalid")
	}
}

func TestConfigMonitor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/host/proc"
	cfg.SortKey = "memory"
	cfg.SortReverse = true
	cfg.PageSize = 4096

	mc, err := cfg.Monitor()
	if err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	want := monitor.Config{
		Root:            "/host/proc",
		SampleInterval:  DefaultSampleInterval,
		RefreshInterval: DefaultRefreshInterval,
		PageSize:        4096,
		SortKey:         monitor.SortMemory,
		SortReverse:     true,
	}
	if mc != want {
		t.Errorf("Monitor() = %+v, want %+v", mc, want)
	}

	cfg.SortKey = "bogus"
	if _, err := cfg.Monitor(); err == nil {
		t.Error("expected error for unknown sort key")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Error("expected error for trace")
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.Clone()
	cp.Filter = "changed"
	if cfg.Filter == "changed" {
		t.Error("Clone shares state with the original")
	}
}
