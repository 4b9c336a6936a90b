package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	clientsDir = "clients"
	serversDir = "servers"
	eventsDir  = "events"
	sinksDir   = "sinks"
	rootFile   = "config.json"

	watchDebounce = 500 * time.Millisecond
)

// ChangeEvent is delivered to OnChange subscribers after a reload or
// a mutation completes, describing what category changed.
type ChangeEvent struct {
	Category string // "root", "clients", "servers", "events", "sinks"
}

// Store owns the on-disk config tree: a root config.json plus
// clients/, servers/, events/, sinks/ subdirectories of one JSON file
// per entity. Grounded on GoClode's internal/core/db.go Engine, whose
// watchConfig/WatchFile/OnChange pattern is generalized here from a
// single SQLite version counter to an fsnotify-watched directory tree.
type Store struct {
	dir string
	log *zap.Logger

	mu      sync.RWMutex
	root    RootConfig
	clients map[string]ClientConfig
	servers map[string]ServerConfig
	events  map[string]EventConfig
	sinks   map[string]SinkConfig

	watchMu  sync.Mutex
	watchers []func(ChangeEvent)

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
}

// Open loads the config tree rooted at dir. Missing subdirectories are
// treated as empty categories, not errors, so a fresh install can
// start from just a config.json.
func Open(dir string, log *zap.Logger) (*Store, error) {
	s := &Store{
		dir:     dir,
		log:     log.Named("configstore"),
		clients: map[string]ClientConfig{},
		servers: map[string]ServerConfig{},
		events:  map[string]EventConfig{},
		sinks:   map[string]SinkConfig{},
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	root, err := loadRoot(filepath.Join(s.dir, rootFile))
	if err != nil {
		return fmt.Errorf("configstore: load root: %w", err)
	}

	clients := map[string]ClientConfig{}
	if err := loadCategory(filepath.Join(s.dir, clientsDir), &clients); err != nil {
		return fmt.Errorf("configstore: load clients: %w", err)
	}
	servers := map[string]ServerConfig{}
	if err := loadCategory(filepath.Join(s.dir, serversDir), &servers); err != nil {
		return fmt.Errorf("configstore: load servers: %w", err)
	}
	events := map[string]EventConfig{}
	if err := loadCategory(filepath.Join(s.dir, eventsDir), &events); err != nil {
		return fmt.Errorf("configstore: load events: %w", err)
	}
	sinks := map[string]SinkConfig{}
	if err := loadCategory(filepath.Join(s.dir, sinksDir), &sinks); err != nil {
		return fmt.Errorf("configstore: load sinks: %w", err)
	}

	pruned := pruneEvents(events, servers, sinks)
	for id, ev := range pruned {
		if err := s.writeEntity(eventsDir, id, ev); err != nil {
			s.log.Warn("failed to persist pruned event", zap.String("id", id), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.root = root
	s.clients = clients
	s.servers = servers
	s.events = events
	s.sinks = sinks
	s.mu.Unlock()
	return nil
}

func loadRoot(path string) (RootConfig, error) {
	root := RootConfig{PollIntervalMS: 1000, RescanLogsOnStartup: false}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return root, nil
	}
	if err != nil {
		return root, err
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return root, fmt.Errorf("parse %s: %w", path, err)
	}
	return root, nil
}

// loadCategory reads every *.json file in dir into out, keyed by each
// entity's own ID field (not the filename) since a PUT under one
// filename can carry a body whose id differs; PutCategoryFile
// reconciles that by writing under the id and removing the old file.
func loadCategory[T any](dir string, out *map[string]T) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		id := entityID(v)
		if id == "" {
			id = strings.TrimSuffix(e.Name(), ".json")
		}
		(*out)[id] = v
	}
	return nil
}

// entityID extracts the ID field from any of the four config structs
// via a type switch, since Go generics have no common field accessor.
func entityID(v interface{}) string {
	switch t := v.(type) {
	case ClientConfig:
		return t.ID
	case ServerConfig:
		return t.ID
	case EventConfig:
		return t.ID
	case SinkConfig:
		return t.ID
	default:
		return ""
	}
}

// pruneEvents drops any serverIds/sinkIds on an event that no longer
// resolve to a live server/sink (spec I2: auto-pruning of stale
// cross-references), returning only the events that were modified so
// callers can persist the sanitized copy back to disk.
func pruneEvents(events map[string]EventConfig, servers map[string]ServerConfig, sinks map[string]SinkConfig) map[string]EventConfig {
	changed := map[string]EventConfig{}
	for id, ev := range events {
		newServerIDs := filterExisting(ev.ServerIDs, func(id string) bool {
			_, ok := servers[id]
			return ok
		})
		newSinkIDs := filterExisting(ev.SinkIDs, func(id string) bool {
			_, ok := sinks[id]
			return ok
		})
		if len(newServerIDs) != len(ev.ServerIDs) || len(newSinkIDs) != len(ev.SinkIDs) {
			ev.ServerIDs = newServerIDs
			ev.SinkIDs = newSinkIDs
			events[id] = ev
			changed[id] = ev
		}
	}
	return changed
}

func filterExisting(ids []string, exists func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if exists(id) {
			out = append(out, id)
		}
	}
	return out
}

// --- Accessors ---

func (s *Store) Root() RootConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

func (s *Store) Client(id string) (ClientConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

func (s *Store) Clients() []ClientConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.clients, func(c ClientConfig) string { return c.ID })
}

func (s *Store) Server(id string) (ServerConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.servers[id]
	return v, ok
}

func (s *Store) Servers() []ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.servers, func(v ServerConfig) string { return v.ID })
}

func (s *Store) Event(id string) (EventConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.events[id]
	return v, ok
}

func (s *Store) Events() []EventConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := sortedValues(s.events, func(v EventConfig) string { return v.ID })
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	return list
}

func (s *Store) Sink(id string) (SinkConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sinks[id]
	return v, ok
}

func (s *Store) Sinks() []SinkConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.sinks, func(v SinkConfig) string { return v.ID })
}

func sortedValues[T any](m map[string]T, key func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out
}

// --- Mutations ---

// PutClient writes/updates a client config and reloads it into memory.
func (s *Store) PutClient(c ClientConfig) error {
	if c.ID == "" {
		return fmt.Errorf("configstore: client id required")
	}
	if err := s.writeEntity(clientsDir, c.ID, c); err != nil {
		return err
	}
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "clients"})
	return nil
}

// PutServer writes/updates a server config.
func (s *Store) PutServer(v ServerConfig) error {
	if v.ID == "" {
		return fmt.Errorf("configstore: server id required")
	}
	if err := s.writeEntity(serversDir, v.ID, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.servers[v.ID] = v
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "servers"})
	return nil
}

// PutSink writes/updates a sink config.
func (s *Store) PutSink(v SinkConfig) error {
	if v.ID == "" {
		return fmt.Errorf("configstore: sink id required")
	}
	if err := s.writeEntity(sinksDir, v.ID, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.sinks[v.ID] = v
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "sinks"})
	return nil
}

// PutEvent writes/updates an event config, pruning dangling
// serverIds/sinkIds before persisting (spec I2).
func (s *Store) PutEvent(v EventConfig) error {
	if v.ID == "" {
		return fmt.Errorf("configstore: event id required")
	}
	s.mu.RLock()
	servers := s.servers
	sinks := s.sinks
	s.mu.RUnlock()

	v.ServerIDs = filterExisting(v.ServerIDs, func(id string) bool { _, ok := servers[id]; return ok })
	v.SinkIDs = filterExisting(v.SinkIDs, func(id string) bool { _, ok := sinks[id]; return ok })

	if err := s.writeEntity(eventsDir, v.ID, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.events[v.ID] = v
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "events"})
	return nil
}

// DeleteServer removes a server and cascades the deletion into every
// event's serverIds list (spec I2).
func (s *Store) DeleteServer(id string) error {
	if err := s.deleteEntity(serversDir, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.servers, id)
	for evID, ev := range s.events {
		filtered := filterExisting(ev.ServerIDs, func(sid string) bool { return sid != id })
		if len(filtered) != len(ev.ServerIDs) {
			ev.ServerIDs = filtered
			s.events[evID] = ev
			_ = s.writeEntity(eventsDir, evID, ev)
		}
	}
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "servers"})
	return nil
}

// DeleteSink removes a sink and cascades the deletion into every
// event's sinkIds list (spec I2).
func (s *Store) DeleteSink(id string) error {
	if err := s.deleteEntity(sinksDir, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sinks, id)
	for evID, ev := range s.events {
		filtered := filterExisting(ev.SinkIDs, func(sid string) bool { return sid != id })
		if len(filtered) != len(ev.SinkIDs) {
			ev.SinkIDs = filtered
			s.events[evID] = ev
			_ = s.writeEntity(eventsDir, evID, ev)
		}
	}
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "sinks"})
	return nil
}

// DeleteClient removes a client config. Clients are not referenced by
// id from events, so no cascade is needed.
func (s *Store) DeleteClient(id string) error {
	if err := s.deleteEntity(clientsDir, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "clients"})
	return nil
}

// DeleteEvent removes an event config outright.
func (s *Store) DeleteEvent(id string) error {
	if err := s.deleteEntity(eventsDir, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.events, id)
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "events"})
	return nil
}

func (s *Store) deleteEntity(category, id string) error {
	path := filepath.Join(s.dir, category, id+".json")
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("configstore: delete %s: %w", path, err)
	}
	return nil
}

// writeEntity atomically persists v under <dir>/<category>/<id>.json
// via a temp-file-plus-rename, so a crash mid-write never leaves a
// half-written config file on disk (spec I1).
func (s *Store) writeEntity(category, id string, v interface{}) error {
	categoryDir := filepath.Join(s.dir, category)
	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		return fmt.Errorf("configstore: mkdir %s: %w", categoryDir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal %s/%s: %w", category, id, err)
	}
	return atomicWrite(filepath.Join(categoryDir, id+".json"), data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("configstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("configstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("configstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("configstore: rename into place: %w", err)
	}
	return nil
}

// --- Hot reload ---

// OnChange registers fn to be called after every successful reload
// and after every successful mutation.
// Modeled on GoClode's Engine.OnChange/notifyWatchers callback fan-out.
func (s *Store) OnChange(fn func(ChangeEvent)) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) notify(ev ChangeEvent) {
	s.watchMu.Lock()
	watchers := append([]func(ChangeEvent){}, s.watchers...)
	s.watchMu.Unlock()
	for _, fn := range watchers {
		fn(ev)
	}
}

// Watch starts an fsnotify watch over the config directory tree,
// debouncing bursts of events (editors and external tools often write
// a file as unlink+create+chmod) before triggering one full reload.
// Adapted from GoClode's Engine.watchConfig ticker-based polling loop,
// generalized here to fsnotify events over a directory tree instead of
// a single SQLite file's version counter.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configstore: create watcher: %w", err)
	}
	for _, sub := range []string{"", clientsDir, serversDir, eventsDir, sinksDir} {
		dir := filepath.Join(s.dir, sub)
		if sub == "" {
			dir = s.dir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			w.Close()
			return fmt.Errorf("configstore: mkdir %s: %w", dir, err)
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("configstore: watch %s: %w", dir, err)
		}
	}
	s.fsWatcher = w
	s.stopCh = make(chan struct{})

	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-s.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", zap.Error(err))
		case <-reload:
			if err := s.loadAll(); err != nil {
				s.log.Error("reload failed, keeping previous config", zap.Error(err))
				continue
			}
			s.log.Info("config reloaded")
			s.notify(ChangeEvent{Category: "root"})
		}
	}
}

// Stop tears down the fsnotify watcher, if running.
func (s *Store) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	if s.fsWatcher != nil {
		s.fsWatcher.Close()
		s.fsWatcher = nil
	}
}
