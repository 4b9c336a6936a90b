package clientwatch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherDispatchesAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "")

	var mu sync.Mutex
	var got []string
	w, err := NewWatcher(zap.NewNop(), 20*time.Millisecond, func(p, line string) {
		mu.Lock()
		got = append(got, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.AddFile(path, 0); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	go w.Run()
	defer w.Stop()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	f.WriteString("hello\n")
	f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("expected [hello], got %v", got)
	}
}

func TestRemoveFileStopsTracking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "x\n")

	w, err := NewWatcher(zap.NewNop(), time.Second, func(p, line string) {})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.AddFile(path, 0); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	w.RemoveFile(path)

	w.mu.Lock()
	_, tracked := w.tailers[path]
	w.mu.Unlock()
	if tracked {
		t.Error("expected file to no longer be tracked")
	}
}
