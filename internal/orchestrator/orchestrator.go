// Package orchestrator wires the configstore, client adapters, file
// watchers, event processor, and sink dispatcher into a running
// daemon. It coordinates component lifecycle and hot-reload; it does
// not itself parse lines, match events, or render templates (spec
// §4.9). Grounded on the orchestrator pattern in
// kluzzebass-gastrolog's internal/orchestrator/orchestrator.go: a
// coordinator that owns component registries and reacts to
// config-reload events, but keeps per-record logic in its
// subcomponents.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/adapter"
	"github.com/hycord/irc-notify/internal/clientwatch"
	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/processor"
	"github.com/hycord/irc-notify/internal/record"
	"github.com/hycord/irc-notify/internal/sink"
)

// Stats tracks process-lifetime counters surfaced by the HTTP status
// route (spec §4.10 GET /api/status).
type Stats struct {
	LinesRead       atomic.Int64
	RecordsParsed   atomic.Int64
	RecordsDropped  atomic.Int64
	EventsMatched   atomic.Int64
	NotificationsSent atomic.Int64
}

// clientRuntime is the live state the orchestrator keeps per enabled
// client: its compiled parser rules, discovered files, and a watcher
// tailing them.
type clientRuntime struct {
	client  configstore.ClientConfig
	rules   *adapter.RuleSet
	watcher *clientwatch.Watcher
	// fileContext maps a discovered file's path to the target info
	// extracted from it, so the line handler doesn't re-run path
	// extraction on every line.
	fileContext map[string]fileContext
}

type fileContext struct {
	targetName   string
	targetType   string
	serverHint   string
}

// Orchestrator owns every running component and reacts to configstore
// change notifications by tearing down and rebuilding client runtimes
// (spec §4.9: ReloadFull diffs additions vs removals across reloads).
type Orchestrator struct {
	log   *zap.Logger
	store *configstore.Store
	proc  *processor.Processor
	disp  *sink.Dispatcher

	pollInterval time.Duration
	rescanOnStartup bool

	Stats Stats

	mu        sync.Mutex
	runtimes  map[string]*clientRuntime // keyed by client ID
	running   bool
	reloading atomic.Bool
}

// Running reports whether Start has been called and Stop has not.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Reloading reports whether a ReloadFull is currently in flight,
// surfaced by GET /api/status (spec §4.10).
func (o *Orchestrator) Reloading() bool {
	return o.reloading.Load()
}

// WatcherCount returns the number of files currently being tailed
// across every client runtime, surfaced by GET /api/status.
func (o *Orchestrator) WatcherCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, rt := range o.runtimes {
		n += len(rt.fileContext)
	}
	return n
}

// New constructs an Orchestrator bound to store. sinkRegistry may be
// pre-seeded with custom sink kinds before New is called.
func New(log *zap.Logger, store *configstore.Store, sinkRegistry *sink.Registry) *Orchestrator {
	root := store.Root()
	pollInterval := time.Duration(root.PollIntervalMS) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Orchestrator{
		log:             log.Named("orchestrator"),
		store:           store,
		proc:            processor.New(),
		disp:            sink.NewDispatcher(log, sinkRegistry),
		pollInterval:    pollInterval,
		rescanOnStartup: root.RescanLogsOnStartup,
		runtimes:        map[string]*clientRuntime{},
	}
}

// Start builds a runtime for every enabled client, begins tailing
// their log files, starts the configstore's directory watcher, and
// subscribes to its change notifications for hot reload.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: already running")
	}
	o.running = true
	o.mu.Unlock()

	if err := o.ReloadFull(ctx); err != nil {
		return fmt.Errorf("orchestrator: initial load: %w", err)
	}

	o.store.OnChange(func(ev configstore.ChangeEvent) {
		if err := o.ReloadFull(ctx); err != nil {
			o.log.Error("reload failed", zap.Error(err))
		}
	})

	if err := o.store.Watch(); err != nil {
		return fmt.Errorf("orchestrator: start config watch: %w", err)
	}
	return nil
}

// Stop tears down every client runtime and the configstore watcher.
func (o *Orchestrator) Stop() {
	o.store.Stop()

	o.mu.Lock()
	defer o.mu.Unlock()
	for id, rt := range o.runtimes {
		rt.watcher.Stop()
		delete(o.runtimes, id)
	}
	o.running = false
}

// ReloadFull diffs the configstore's current client list against the
// orchestrator's running set: clients removed or disabled are torn
// down, clients added or changed are (re)built from scratch. A client
// whose config is unchanged keeps its existing runtime and read
// position, so a reload never re-reads lines already delivered.
func (o *Orchestrator) ReloadFull(ctx context.Context) error {
	o.reloading.Store(true)
	defer o.reloading.Store(false)

	clients := o.store.Clients()
	wanted := map[string]configstore.ClientConfig{}
	for _, c := range clients {
		if c.Enabled {
			wanted[c.ID] = c
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for id, rt := range o.runtimes {
		newCfg, stillWanted := wanted[id]
		if !stillWanted || !configsEqual(rt.client, newCfg) {
			rt.watcher.Stop()
			delete(o.runtimes, id)
		}
	}

	for id, cfg := range wanted {
		if _, exists := o.runtimes[id]; exists {
			continue
		}
		rt, err := o.buildRuntime(ctx, cfg)
		if err != nil {
			o.log.Warn("failed to start client", zap.String("client", id), zap.Error(err))
			continue
		}
		o.runtimes[id] = rt
	}
	return nil
}

// configsEqual compares two client configs for the purpose of
// deciding whether a running client runtime needs to be rebuilt.
// Marshaling to JSON sidesteps the fact that ClientConfig embeds
// map[string]interface{} metadata, which Go cannot compare with ==.
func configsEqual(a, b configstore.ClientConfig) bool {
	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(aj) == string(bj)
}

func (o *Orchestrator) buildRuntime(ctx context.Context, cfg configstore.ClientConfig) (*clientRuntime, error) {
	rules := adapter.NewRuleSet(cfg.ParserRules)
	for name, err := range rules.Errors() {
		o.log.Warn("dropping unparsable rule", zap.String("client", cfg.ID), zap.String("rule", name), zap.Error(err))
	}

	files, err := adapter.Discover(cfg.LogDirectory, cfg.Discovery)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	rt := &clientRuntime{
		client:      cfg,
		rules:       rules,
		fileContext: map[string]fileContext{},
	}

	rt.watcher, err = clientwatch.NewWatcher(o.log, o.pollInterval, func(path, line string) {
		o.handleLine(cfg, rt, path, line)
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, f := range files {
		pattern := patternForTarget(cfg.Discovery, f.Target)
		targetName := adapter.ExtractContextFromPath(f.Path, pattern)
		serverHint := adapter.ExtractContextFromPath(f.Path, cfg.Discovery.ServerPattern)
		rt.fileContext[f.Path] = fileContext{
			targetName: targetName,
			targetType: string(f.Target),
			serverHint: serverHint,
		}

		startOffset := int64(0)
		if !o.rescanOnStartup {
			startOffset = fileSizeOrZero(f.Path)
		}
		if err := rt.watcher.AddFile(f.Path, startOffset); err != nil {
			o.log.Warn("failed to watch file", zap.String("path", f.Path), zap.Error(err))
		}
	}

	go rt.watcher.Run()
	return rt, nil
}

func patternForTarget(d configstore.Discovery, target record.TargetType) *configstore.PathPattern {
	switch target {
	case record.TargetConsole:
		return d.ConsolePattern
	case record.TargetChannel:
		return d.ChannelPattern
	case record.TargetQuery:
		return d.QueryPattern
	default:
		return nil
	}
}

func fileSizeOrZero(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
