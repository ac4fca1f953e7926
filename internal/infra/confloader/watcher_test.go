// Package confloader provides configuration loading mechanism.
package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var fired atomic.Int32
	changed := make(chan string, 4)
	w.OnChange(func(p string) {
		fired.Add(1)
		select {
		case changed <- p:
		default:
		}
	})

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	w.StartAsync()
	defer w.Stop()

	// Give the watcher loop time to begin receiving events.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("a: 2\n"), 0600); err != nil {
		t.Fatalf("rewrite config file: %v", err)
	}

	select {
	case p := <-changed:
		if filepath.Base(p) != "config.yaml" {
			t.Errorf("changed path = %q, want config.yaml", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcher_NotifiesOnRename(t *testing.T) {
	// Atomic-rename save: write a temp file, rename over the target.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	changed := make(chan string, 4)
	w.OnChange(func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	w.StartAsync()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	tmp := filepath.Join(dir, ".config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("a: 2\n"), 0600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename temp file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rename notification")
	}
}

func TestWatcher_StopClosesLoop(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Start()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
