package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatcherBadPath(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/dir/config.yaml", zerolog.Nop()); err == nil {
		t.Fatalf("NewWatcher should fail for a nonexistent directory")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "browse:\n  page_size: 10\n")

	w, err := NewWatcher(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// Give fsnotify time to start watching.
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "browse:\n  page_size: 25\n")

	select {
	case cfg := <-w.Changes():
		if cfg.Browse.PageSize != 25 {
			t.Fatalf("page size = %d, want 25", cfg.Browse.PageSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for config reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "browse:\n  page_size: 10\n")

	w, err := NewWatcher(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "plugins.yaml"), "plugins: []\n")

	select {
	case <-w.Changes():
		t.Fatalf("unexpected reload for an unrelated file")
	case <-time.After(400 * time.Millisecond):
	}
}
