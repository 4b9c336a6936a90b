package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverBucketsByGlob(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "libera", "console.log"))
	touch(t, filepath.Join(dir, "libera", "#golang.log"))
	touch(t, filepath.Join(dir, "libera", "queries", "alice.log"))

	d := configstore.Discovery{
		ConsoleGlobs: []string{"*/console.log"},
		ChannelGlobs: []string{"*/#*.log"},
		QueryGlobs:   []string{"*/queries/*.log"},
	}
	files, err := Discover(dir, d)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(files), files)
	}

	byTarget := map[record.TargetType]int{}
	for _, f := range files {
		byTarget[f.Target]++
	}
	if byTarget[record.TargetConsole] != 1 || byTarget[record.TargetChannel] != 1 || byTarget[record.TargetQuery] != 1 {
		t.Errorf("unexpected target distribution: %+v", byTarget)
	}
}

func TestDiscoverDedupesOverlappingGlobs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.log"))

	d := configstore.Discovery{
		ConsoleGlobs: []string{"a.log", "*.log"},
	}
	files, err := Discover(dir, d)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected dedup to 1 file, got %d", len(files))
	}
}

func TestExtractContextFromPathNamedGroup(t *testing.T) {
	pattern := &configstore.PathPattern{
		Pattern: `/([^/]+)/#(?P<channel>[^/.]+)\.log$`,
		Group:   "channel",
	}
	got := ExtractContextFromPath("/logs/libera/#golang.log", pattern)
	if got != "golang" {
		t.Errorf("got %q", got)
	}
}

func TestExtractContextFromPathNoMatch(t *testing.T) {
	pattern := &configstore.PathPattern{Pattern: `nonmatching`, Group: "x"}
	if got := ExtractContextFromPath("/logs/libera/console.log", pattern); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestExtractContextFromPathNilPattern(t *testing.T) {
	if got := ExtractContextFromPath("/anything", nil); got != "" {
		t.Errorf("expected empty for nil pattern, got %q", got)
	}
}
