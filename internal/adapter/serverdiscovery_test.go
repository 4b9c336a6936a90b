package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hycord/irc-notify/internal/configstore"
)

func TestDiscoverServersStatic(t *testing.T) {
	sd := configstore.ServerDiscovery{
		Mode:   configstore.ServerDiscoveryStatic,
		Static: []configstore.StaticServer{{Hostname: "irc.libera.chat"}, {Hostname: "irc.efnet.org"}},
	}
	got, err := DiscoverServers("", sd)
	if err != nil {
		t.Fatalf("DiscoverServers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(got))
	}
}

func TestDiscoverServersFilesystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "irc.libera.chat"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "irc.efnet.org"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sd := configstore.ServerDiscovery{
		Mode: configstore.ServerDiscoveryFilesystem,
		Glob: "*",
	}
	got, err := DiscoverServers(dir, sd)
	if err != nil {
		t.Fatalf("DiscoverServers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 servers, got %d: %+v", len(got), got)
	}
}

func TestDiscoverServersJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "servers.json")
	if err := os.WriteFile(path, []byte(`[{"hostname":"irc.libera.chat"},{"hostname":"irc.efnet.org"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sd := configstore.ServerDiscovery{
		Mode:     configstore.ServerDiscoveryJSON,
		JSONPath: "servers.json",
	}
	got, err := DiscoverServers(dir, sd)
	if err != nil {
		t.Fatalf("DiscoverServers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(got))
	}
}

func TestDiscoverServersUnknownModeErrors(t *testing.T) {
	sd := configstore.ServerDiscovery{Mode: "bogus"}
	if _, err := DiscoverServers("", sd); err == nil {
		t.Error("expected error for unknown mode")
	}
}
