package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenEmptyDirHasNoEntities(t *testing.T) {
	s := openTestStore(t)
	if len(s.Clients()) != 0 || len(s.Servers()) != 0 || len(s.Events()) != 0 || len(s.Sinks()) != 0 {
		t.Fatal("expected all categories empty on fresh store")
	}
}

func TestPutAndGetServer(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutServer(ServerConfig{ID: "libera", Hostname: "irc.libera.chat", Enabled: true}); err != nil {
		t.Fatalf("PutServer: %v", err)
	}
	got, ok := s.Server("libera")
	if !ok {
		t.Fatal("expected server to be found")
	}
	if got.Hostname != "irc.libera.chat" {
		t.Errorf("got hostname %q", got.Hostname)
	}

	path := filepath.Join(s.dir, serversDir, "libera.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func TestPutEventPrunesDanglingReferences(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutSink(SinkConfig{ID: "ntfy1", Kind: SinkNtfy, Enabled: true}); err != nil {
		t.Fatalf("PutSink: %v", err)
	}
	err := s.PutEvent(EventConfig{
		ID:        "ev1",
		BaseEvent: BaseMessage,
		ServerIDs: []string{"does-not-exist"},
		SinkIDs:   []string{"ntfy1", "also-missing"},
	})
	if err != nil {
		t.Fatalf("PutEvent: %v", err)
	}
	got, _ := s.Event("ev1")
	if len(got.ServerIDs) != 0 {
		t.Errorf("expected dangling serverIds pruned, got %v", got.ServerIDs)
	}
	if len(got.SinkIDs) != 1 || got.SinkIDs[0] != "ntfy1" {
		t.Errorf("expected only ntfy1 to survive, got %v", got.SinkIDs)
	}
}

func TestDeleteServerCascadesIntoEvents(t *testing.T) {
	s := openTestStore(t)
	_ = s.PutServer(ServerConfig{ID: "libera", Enabled: true})
	_ = s.PutEvent(EventConfig{ID: "ev1", BaseEvent: BaseJoin, ServerIDs: []string{"libera"}})

	if err := s.DeleteServer("libera"); err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	got, _ := s.Event("ev1")
	if len(got.ServerIDs) != 0 {
		t.Errorf("expected serverIds cascade-cleared, got %v", got.ServerIDs)
	}
}

func TestReloadPicksUpPrunedFileOnDisk(t *testing.T) {
	s := openTestStore(t)
	_ = s.PutSink(SinkConfig{ID: "s1", Kind: SinkConsole, Enabled: true})
	_ = s.PutEvent(EventConfig{ID: "ev1", BaseEvent: BaseMessage, SinkIDs: []string{"s1", "gone"}})

	// simulate an external process deleting the sink file directly
	if err := os.Remove(filepath.Join(s.dir, sinksDir, "s1.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.loadAll(); err != nil {
		t.Fatalf("loadAll: %v", err)
	}
	got, _ := s.Event("ev1")
	if len(got.SinkIDs) != 0 {
		t.Errorf("expected both sinkIds pruned after sink file removed, got %v", got.SinkIDs)
	}
}

func TestExportImportBundleRoundTrips(t *testing.T) {
	s := openTestStore(t)
	_ = s.PutServer(ServerConfig{ID: "libera", Enabled: true})
	_ = s.PutSink(SinkConfig{ID: "ntfy1", Kind: SinkNtfy, Enabled: true})
	_ = s.PutEvent(EventConfig{ID: "ev1", BaseEvent: BaseMessage, ServerIDs: []string{"libera"}, SinkIDs: []string{"ntfy1"}})

	data, err := s.ExportBundle()
	if err != nil {
		t.Fatalf("ExportBundle: %v", err)
	}

	s2 := openTestStore(t)
	if err := s2.ImportBundle(data, ImportReplace); err != nil {
		t.Fatalf("ImportBundle: %v", err)
	}
	if _, ok := s2.Server("libera"); !ok {
		t.Error("expected imported server to be present")
	}
	ev, ok := s2.Event("ev1")
	if !ok || len(ev.SinkIDs) != 1 {
		t.Errorf("expected imported event with sinkIds intact, got %+v ok=%v", ev, ok)
	}
}

func TestImportBundleMergeKeepsExistingUntouchedEntities(t *testing.T) {
	s := openTestStore(t)
	_ = s.PutServer(ServerConfig{ID: "keep-me", Enabled: true})

	other := openTestStore(t)
	_ = other.PutServer(ServerConfig{ID: "new-one", Enabled: true})
	data, _ := other.ExportBundle()

	if err := s.ImportBundle(data, ImportMerge); err != nil {
		t.Fatalf("ImportBundle: %v", err)
	}
	if _, ok := s.Server("keep-me"); !ok {
		t.Error("expected pre-existing server to survive a merge import")
	}
	if _, ok := s.Server("new-one"); !ok {
		t.Error("expected bundle's server to be merged in")
	}
}

func TestAtomicWriteLeavesNoTempFileBehind(t *testing.T) {
	s := openTestStore(t)
	_ = s.PutServer(ServerConfig{ID: "libera", Enabled: true})

	entries, err := os.ReadDir(filepath.Join(s.dir, serversDir))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Errorf("unexpected leftover file: %s", e.Name())
		}
	}
}
