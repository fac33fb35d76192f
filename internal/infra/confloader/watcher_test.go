package confloader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(WithWatcherLogger(logger.Discard()), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)
	if err := w.Watch("/nonexistent/path/kkmgate.yaml"); err == nil {
		t.Error("Watch() expected error for nonexistent directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w := newTestWatcher(t)
	w.StartAsync()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) { changed <- p })
	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	// A sibling file is ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changed:
		if filepath.Clean(p) != filepath.Clean(path) {
			t.Errorf("callback path = %q, want %q", p, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_ConcurrentCallbacks(t *testing.T) {
	w := newTestWatcher(t)

	var (
		mu    sync.Mutex
		count int
	)
	w.OnChange(func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notifyCallbacks("/test/path")
		}()
	}
	wg.Wait()

	if count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestLevelReloader(t *testing.T) {
	defer logger.SetLevel(logger.GetLevel())
	logger.SetLevel("info")

	path := writeConfig(t, "server:\n  port: 1\nlog:\n  level: debug\n")
	reload := LevelReloader(logger.Discard(), WithEnvPrefix("KKMGATE_TEST_"))
	reload(path)
	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}

	// A broken file leaves the level alone.
	reload(filepath.Join(t.TempDir(), "missing.yaml"))
	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("level = %q after failed reload, want debug", got)
	}

	// Overrides given at startup win over the edited file.
	pinned := LevelReloader(logger.Discard(),
		WithEnvPrefix("KKMGATE_TEST_"),
		WithOverrides(map[string]any{"log.level": "error"}))
	pinned(path)
	if got := logger.GetLevel(); got != "error" {
		t.Errorf("level = %q, want pinned error", got)
	}
}
