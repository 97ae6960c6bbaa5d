package procmon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestConfigWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.lua")
	if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	w, err := newConfigWatcher(path, 100*time.Millisecond, func() error {
		reloads.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("newConfigWatcher failed: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("change"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	if got := reloads.Load(); got != 1 {
		t.Errorf("reloads = %d, want 1 for one burst", got)
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.lua")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	w, err := newConfigWatcher(path, 20*time.Millisecond, func() error {
		reloads.Add(1)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("newConfigWatcher failed: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.lua"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := reloads.Load(); got != 0 {
		t.Errorf("reloads = %d, want 0", got)
	}
}

func TestConfigWatcherReportsReloadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.lua")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	w, err := newConfigWatcher(path, 20*time.Millisecond, func() error {
		return errors.New("bad config")
	}, func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})
	if err != nil {
		t.Fatalf("newConfigWatcher failed: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err.Error() != "bad config" {
			t.Errorf("error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload error not reported")
	}
}

func TestConfigWatcherStopWithoutStart(t *testing.T) {
	w, err := newConfigWatcher(filepath.Join(t.TempDir(), "config.lua"), 0, func() error { return nil }, nil)
	if err != nil {
		t.Fatalf("newConfigWatcher failed: %v", err)
	}
	if w.debounce != DefaultWatchDebounce {
		t.Errorf("debounce = %v, want default", w.debounce)
	}
	w.Stop()
}

func TestConfigWatcherMissingDirectory(t *testing.T) {
	_, err := newConfigWatcher(filepath.Join(t.TempDir(), "nope", "config.lua"), 0, func() error { return nil }, nil)
	if err == nil {
		t.Error("expected error for a missing directory")
	}
}
