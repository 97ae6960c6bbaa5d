package procmon

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(NewHandler(&buf, slog.LevelWarn)))

	logger.Info("hidden message")
	logger.Warn("visible message", "source", "system-cpu")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "system-cpu") {
		t.Errorf("warn line missing: %q", out)
	}
	if !strings.Contains(out, "proc-monitor") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := JSONLogger(&buf, slog.LevelDebug)
	logger.Debug("engine rebuilt", "root", "/proc")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "engine rebuilt" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["root"] != "/proc" {
		t.Errorf("root = %v", entry["root"])
	}
}

func TestNewSlogAdapterNil(t *testing.T) {
	if NewSlogAdapter(nil).logger == nil {
		t.Error("nil logger not replaced with slog.Default()")
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
