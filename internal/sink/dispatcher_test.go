package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

func TestDispatchWritesToFileSink(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.log")

	registry := NewRegistry()
	d := NewDispatcher(zap.NewNop(), registry)

	sinks := map[string]configstore.SinkConfig{
		"f1": {ID: "f1", Kind: configstore.SinkFile, Enabled: true, Config: map[string]interface{}{"path": outPath}},
	}
	rec := sampleRecord()
	d.Dispatch(context.Background(), rec, []string{"f1"}, sinks, configstore.EventConfig{})

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("expected rendered body in output, got %q", data)
	}
}

func TestDispatchSkipsDisabledSink(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.log")

	registry := NewRegistry()
	d := NewDispatcher(zap.NewNop(), registry)
	sinks := map[string]configstore.SinkConfig{
		"f1": {ID: "f1", Kind: configstore.SinkFile, Enabled: false, Config: map[string]interface{}{"path": outPath}},
	}
	d.Dispatch(context.Background(), sampleRecord(), []string{"f1"}, sinks, configstore.EventConfig{})

	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("expected disabled sink to never write")
	}
}

func TestDispatchRespectsRateLimit(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.log")

	registry := NewRegistry()
	d := NewDispatcher(zap.NewNop(), registry)
	sinks := map[string]configstore.SinkConfig{
		"f1": {
			ID: "f1", Kind: configstore.SinkFile, Enabled: true,
			Config:    map[string]interface{}{"path": outPath},
			RateLimit: &configstore.RateLimit{MaxPerMinute: 1},
		},
	}
	ctx := context.Background()
	rec := sampleRecord()
	d.Dispatch(ctx, rec, []string{"f1"}, sinks, configstore.EventConfig{})
	d.Dispatch(ctx, rec, []string{"f1"}, sinks, configstore.EventConfig{})

	data, _ := os.ReadFile(outPath)
	lines := strings.Count(string(data), "\n")
	if lines != 1 {
		t.Errorf("expected exactly 1 delivered line under the rate limit, got %d", lines)
	}
}

func TestDispatchMissingSinkIsNoop(t *testing.T) {
	registry := NewRegistry()
	d := NewDispatcher(zap.NewNop(), registry)
	d.Dispatch(context.Background(), sampleRecord(), []string{"ghost"}, map[string]configstore.SinkConfig{}, configstore.EventConfig{})
}

func TestScopeRecordForSinkFiltersMetadata(t *testing.T) {
	rec := record.Record{Metadata: map[string]interface{}{"a": "1", "b": "2"}}
	cfg := configstore.SinkConfig{AllowedMetaKeys: []string{"a"}}
	scoped := scopeRecordForSink(rec, cfg, nil)
	if _, ok := scoped.Metadata["b"]; ok {
		t.Error("expected disallowed metadata key to be stripped")
	}
	if _, ok := rec.Metadata["b"]; !ok {
		t.Error("expected original record's metadata to be untouched")
	}
}

func TestScopeRecordForSinkMergesHostOverride(t *testing.T) {
	rec := record.Record{Server: record.Server{DisplayName: "Libera"}}
	cfg := configstore.SinkConfig{}
	eventMetadata := map[string]interface{}{
		"host": map[string]interface{}{"displayName": "Overridden"},
	}
	scoped := scopeRecordForSink(rec, cfg, eventMetadata)
	if scoped.Server.DisplayName != "Overridden" {
		t.Errorf("expected overridden displayName, got %q", scoped.Server.DisplayName)
	}
	if rec.Server.DisplayName != "Libera" {
		t.Error("expected original record's server to be untouched")
	}
}
