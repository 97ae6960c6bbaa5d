package config

import (
	"strings"
	"testing"
	"time"
)

func TestNewLuaConfigParser(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	if p == nil {
		t.Error("NewLuaConfigParser returned nil")
	}
}

func TestLuaConfigParserParseBasic(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	content := `
procmon.config = {
    root = '/host/proc',
    sample_interval = 2,
    refresh_interval = 0.5,
    page_size = 16384,
    legacy_pid_match = true,
    filter = 'nginx',
    sort = 'cpu',
    sort_reverse = true,
    log_level = 'debug',
    log_file = '/tmp/procmon.log',
}
`
	cfg, err := p.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Root != "/host/proc" {
		t.Errorf("expected root /host/proc, got %q", cfg.Root)
	}
	if cfg.SampleInterval != 2*time.Second {
		t.Errorf("expected sample_interval=2s, got %v", cfg.SampleInterval)
	}
	if cfg.RefreshInterval != 500*time.Millisecond {
		t.Errorf("expected refresh_interval=500ms, got %v", cfg.RefreshInterval)
	}
	if cfg.PageSize != 16384 {
		t.Errorf("expected page_size=16384, got %d", cfg.PageSize)
	}
	if !cfg.LegacyPIDMatch {
		t.Error("expected legacy_pid_match=true")
	}
	if cfg.Filter != "nginx" {
		t.Errorf("expected filter nginx, got %q", cfg.Filter)
	}
	if cfg.SortKey != "cpu" || !cfg.SortReverse {
		t.Errorf("expected sort cpu reversed, got %q reverse=%v", cfg.SortKey, cfg.SortReverse)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if cfg.LogFile != "/tmp/procmon.log" {
		t.Errorf("expected log_file, got %q", cfg.LogFile)
	}
}

func TestLuaConfigParserDefaults(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	cfg, err := p.Parse([]byte("procmon.config = {}\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if *cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", *cfg)
	}
}

func TestLuaConfigParserFieldAssignment(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	content := `
local interval = 3
procmon.config.sample_interval = interval
procmon.config.filter = string.upper("ssh")
`
	cfg, err := p.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.SampleInterval != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.SampleInterval)
	}
	if cfg.Filter != "SSH" {
		t.Errorf("expected filter SSH, got %q", cfg.Filter)
	}
}

func TestLuaConfigParserReuse(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	if _, err := p.Parse([]byte("procmon.config = { filter = 'first' }")); err != nil {
		t.Fatalf("first Parse failed: %v", err)
	}
	cfg, err := p.Parse([]byte("procmon.config = { sort = 'name' }"))
	if err != nil {
		t.Fatalf("second Parse failed: %v", err)
	}
	if cfg.Filter != "" {
		t.Errorf("state leaked between parses: filter %q", cfg.Filter)
	}
	if cfg.SortKey != "name" {
		t.Errorf("expected sort name, got %q", cfg.SortKey)
	}
}

func TestLuaConfigParserErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax error", "procmon.config = {", "compile"},
		{"runtime error", "error('boom')", "execute"},
		{"config not a table", "procmon.config = 5", "not a table"},
		{"procmon not a table", "procmon = 'x'", "not a table"},
		{"interval not a number", "procmon.config = { sample_interval = 'fast' }", "sample_interval"},
		{"page size not a number", "procmon.config = { page_size = {} }", "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLuaConfigParser()
			if err != nil {
				t.Fatalf("NewLuaConfigParser failed: %v", err)
			}
			defer p.Close()

			_, err = p.Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLuaConfigParserClose(t *testing.T) {
	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
