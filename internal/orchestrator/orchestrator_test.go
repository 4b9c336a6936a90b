package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/sink"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *configstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := configstore.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	o := New(zap.NewNop(), store, sink.NewRegistry())
	return o, store
}

func TestConfigsEqualDetectsDirectoryChange(t *testing.T) {
	a := configstore.ClientConfig{ID: "c1", LogDirectory: "/logs/a"}
	b := configstore.ClientConfig{ID: "c1", LogDirectory: "/logs/b"}
	if configsEqual(a, b) {
		t.Error("expected differing log directories to compare unequal")
	}
}

func TestConfigsEqualIgnoresFieldOrderNotValues(t *testing.T) {
	a := configstore.ClientConfig{ID: "c1", LogDirectory: "/logs/a", Enabled: true}
	b := configstore.ClientConfig{ID: "c1", LogDirectory: "/logs/a", Enabled: true}
	if !configsEqual(a, b) {
		t.Error("expected identical configs to compare equal")
	}
}

func TestReloadFullStartsEnabledClientsOnly(t *testing.T) {
	o, store := newTestOrchestrator(t)
	defer o.Stop()

	logDir := filepath.Join(t.TempDir())
	if err := os.WriteFile(filepath.Join(logDir, "console.log"), []byte("hi\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = store.PutClient(configstore.ClientConfig{
		ID: "enabled-client", Enabled: true, LogDirectory: logDir,
		Discovery: configstore.Discovery{ConsoleGlobs: []string{"console.log"}},
	})
	_ = store.PutClient(configstore.ClientConfig{
		ID: "disabled-client", Enabled: false, LogDirectory: logDir,
	})

	if err := o.ReloadFull(context.Background()); err != nil {
		t.Fatalf("ReloadFull: %v", err)
	}

	o.mu.Lock()
	_, enabledRunning := o.runtimes["enabled-client"]
	_, disabledRunning := o.runtimes["disabled-client"]
	n := len(o.runtimes)
	o.mu.Unlock()

	if !enabledRunning {
		t.Error("expected enabled client to have a runtime")
	}
	if disabledRunning {
		t.Error("expected disabled client to have no runtime")
	}
	if n != 1 {
		t.Errorf("expected exactly 1 runtime, got %d", n)
	}
}

func TestReloadFullTearsDownRemovedClient(t *testing.T) {
	o, store := newTestOrchestrator(t)
	defer o.Stop()

	logDir := t.TempDir()
	_ = store.PutClient(configstore.ClientConfig{ID: "c1", Enabled: true, LogDirectory: logDir})
	if err := o.ReloadFull(context.Background()); err != nil {
		t.Fatalf("ReloadFull: %v", err)
	}
	o.mu.Lock()
	n := len(o.runtimes)
	o.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 runtime before delete, got %d", n)
	}

	if err := store.DeleteClient("c1"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if err := o.ReloadFull(context.Background()); err != nil {
		t.Fatalf("ReloadFull: %v", err)
	}
	o.mu.Lock()
	n = len(o.runtimes)
	o.mu.Unlock()
	if n != 0 {
		t.Errorf("expected runtime torn down after client delete, got %d", n)
	}
}

func TestStartAndStopDoesNotPanic(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	o.Stop()
}
