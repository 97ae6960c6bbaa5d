package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMigrateLegacyContentRoundTrip(t *testing.T) {
	legacy := `root /host/proc
sample_interval 0.5
page_size 4096
legacy_pid_match yes
filter "say \"hi\""
sort cpu
`
	out, err := MigrateLegacyContent([]byte(legacy))
	if err != nil {
		t.Fatalf("MigrateLegacyContent failed: %v", err)
	}
	if !IsLuaConfig(out) {
		t.Fatalf("output is not detected as Lua:\n%s", out)
	}
	if !strings.HasPrefix(string(out), "-- proc-monitor configuration") {
		t.Errorf("missing header comment:\n%s", out)
	}

	p, err := NewLuaConfigParser()
	if err != nil {
		t.Fatalf("NewLuaConfigParser failed: %v", err)
	}
	defer p.Close()

	cfg, err := p.Parse(out)
	if err != nil {
		t.Fatalf("parsing migrated output: %v\n%s", err, out)
	}
	if cfg.Root != "/host/proc" || cfg.SampleInterval != 500*time.Millisecond ||
		cfg.PageSize != 4096 || !cfg.LegacyPIDMatch || cfg.SortKey != "cpu" {
		t.Errorf("round trip mismatch: %+v", *cfg)
	}
	if cfg.Filter != `say \"hi\"` {
		t.Errorf("filter after round trip = %q", cfg.Filter)
	}
}

func TestMigratorOmitsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	out, err := NewMigrator(WithComments(false)).MigrateToLua(&cfg)
	if err != nil {
		t.Fatalf("MigrateToLua failed: %v", err)
	}
	if string(out) != "procmon.config = {\n}\n" {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = NewMigrator(WithComments(false), WithDefaults(true)).MigrateToLua(&cfg)
	if err != nil {
		t.Fatalf("MigrateToLua failed: %v", err)
	}
	for _, key := range []string{"root", "sample_interval", "refresh_interval", "page_size", "legacy_pid_match", "filter", "sort", "sort_reverse", "log_level", "log_file"} {
		if !strings.Contains(string(out), "    "+key+" = ") {
			t.Errorf("WithDefaults output missing %s:\n%s", key, out)
		}
	}
}

func TestMigrateToLuaNil(t *testing.T) {
	if _, err := NewMigrator().MigrateToLua(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestMigrateLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procmon.conf")
	if err := os.WriteFile(path, []byte("refresh_interval 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := MigrateLegacyFile(path, WithComments(false))
	if err != nil {
		t.Fatalf("MigrateLegacyFile failed: %v", err)
	}
	if !strings.Contains(string(out), "refresh_interval = 2,") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := MigrateLegacyFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := MigrateLegacyContent([]byte("page_size x")); err == nil {
		t.Error("expected error for invalid legacy content")
	}
}
