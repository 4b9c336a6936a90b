package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir returns the root config directory this store was opened against,
// for callers (httpapi) that need to resolve sibling files such as the
// control-plane auth token.
func (s *Store) Dir() string {
	return s.dir
}

// PutRoot replaces the root configuration and persists it to
// config.json, notifying watchers as any other mutation does.
func (s *Store) PutRoot(r RootConfig) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal root: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, rootFile), data); err != nil {
		return err
	}
	s.mu.Lock()
	s.root = r
	s.mu.Unlock()
	s.notify(ChangeEvent{Category: "root"})
	return nil
}

// ReloadFull re-reads every category from disk, exactly as the
// fsnotify-triggered hot reload does, for callers that want to force a
// reload on demand (e.g. POST /api/config/reload).
func (s *Store) ReloadFull() error {
	if err := s.loadAll(); err != nil {
		return err
	}
	s.notify(ChangeEvent{Category: "root"})
	return nil
}

func categoryDirName(category string) (string, bool) {
	switch category {
	case "clients":
		return clientsDir, true
	case "servers":
		return serversDir, true
	case "events":
		return eventsDir, true
	case "sinks":
		return sinksDir, true
	default:
		return "", false
	}
}

// CategoryIDs lists the entity ids currently stored under category,
// sorted, for the /api/config/files listing endpoint.
func (s *Store) CategoryIDs(category string) ([]string, error) {
	dirName, ok := categoryDirName(category)
	if !ok {
		return nil, fmt.Errorf("configstore: unknown category %q", category)
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, dirName))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// AllCategories lists every category name this store manages, in the
// fixed order the /api/config/files response uses.
func AllCategories() []string {
	return []string{"clients", "servers", "events", "sinks"}
}

// ReadCategoryFile returns the raw JSON bytes stored for name under
// category, as written on disk (not re-serialized from the in-memory
// struct), so round-tripping through the editor API never reformats
// fields the struct doesn't know about.
func (s *Store) ReadCategoryFile(category, name string) ([]byte, error) {
	dirName, ok := categoryDirName(category)
	if !ok {
		return nil, fmt.Errorf("configstore: unknown category %q", category)
	}
	return os.ReadFile(filepath.Join(s.dir, dirName, name+".json"))
}

// PutCategoryFile decodes data as the entity type for category, writes
// it under its own id, and — if that id differs from the URL-supplied
// name — removes the old file and cascades the id change into every
// event referencing the old id (spec §4.10: "cascade id changes for
// sinks/servers through events").
func (s *Store) PutCategoryFile(category, name string, data []byte) (id string, renamed bool, err error) {
	switch category {
	case "clients":
		var c ClientConfig
		if err := json.Unmarshal(data, &c); err != nil {
			return "", false, fmt.Errorf("configstore: parse client: %w", err)
		}
		if c.ID == "" {
			c.ID = name
		}
		if err := s.PutClient(c); err != nil {
			return "", false, err
		}
		if c.ID != name {
			_ = s.deleteEntity(clientsDir, name)
			s.mu.Lock()
			delete(s.clients, name)
			s.mu.Unlock()
			renamed = true
		}
		return c.ID, renamed, nil

	case "servers":
		var v ServerConfig
		if err := json.Unmarshal(data, &v); err != nil {
			return "", false, fmt.Errorf("configstore: parse server: %w", err)
		}
		if v.ID == "" {
			v.ID = name
		}
		if err := s.PutServer(v); err != nil {
			return "", false, err
		}
		if v.ID != name {
			_ = s.deleteEntity(serversDir, name)
			s.mu.Lock()
			delete(s.servers, name)
			s.mu.Unlock()
			s.renameIDInEvents(func(ev *EventConfig) bool { return renameInList(&ev.ServerIDs, name, v.ID) })
			renamed = true
		}
		return v.ID, renamed, nil

	case "sinks":
		var v SinkConfig
		if err := json.Unmarshal(data, &v); err != nil {
			return "", false, fmt.Errorf("configstore: parse sink: %w", err)
		}
		if v.ID == "" {
			v.ID = name
		}
		if err := s.PutSink(v); err != nil {
			return "", false, err
		}
		if v.ID != name {
			_ = s.deleteEntity(sinksDir, name)
			s.mu.Lock()
			delete(s.sinks, name)
			s.mu.Unlock()
			s.renameIDInEvents(func(ev *EventConfig) bool { return renameInList(&ev.SinkIDs, name, v.ID) })
			renamed = true
		}
		return v.ID, renamed, nil

	case "events":
		var v EventConfig
		if err := json.Unmarshal(data, &v); err != nil {
			return "", false, fmt.Errorf("configstore: parse event: %w", err)
		}
		if v.ID == "" {
			v.ID = name
		}
		if err := s.PutEvent(v); err != nil {
			return "", false, err
		}
		if v.ID != name {
			_ = s.deleteEntity(eventsDir, name)
			s.mu.Lock()
			delete(s.events, name)
			s.mu.Unlock()
			renamed = true
		}
		return v.ID, renamed, nil

	default:
		return "", false, fmt.Errorf("configstore: unknown category %q", category)
	}
}

// renameInList replaces every occurrence of oldID with newID in *ids,
// reporting whether it changed anything.
func renameInList(ids *[]string, oldID, newID string) bool {
	changed := false
	for i, id := range *ids {
		if id == oldID {
			(*ids)[i] = newID
			changed = true
		}
	}
	return changed
}

// renameIDInEvents applies mutate to every event, persisting and
// updating the in-memory copy for any event it changed.
func (s *Store) renameIDInEvents(mutate func(*EventConfig) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ev := range s.events {
		if mutate(&ev) {
			s.events[id] = ev
			_ = s.writeEntity(eventsDir, id, ev)
		}
	}
}

// DeleteCategoryFile removes name from category and, for servers and
// sinks, reports how many event files were cascade-updated as a side
// effect (spec §4.10: `{deleted, cascade:{updatedFiles, totalFiles}}`).
func (s *Store) DeleteCategoryFile(category, name string) (deleted bool, updatedFiles, totalFiles int, err error) {
	s.mu.RLock()
	totalFiles = len(s.events)
	s.mu.RUnlock()

	switch category {
	case "clients":
		_, deleted = s.Client(name)
		err = s.DeleteClient(name)
	case "servers":
		_, deleted = s.Server(name)
		updatedFiles = s.countEventsReferencing(func(ev EventConfig) bool { return containsID(ev.ServerIDs, name) })
		err = s.DeleteServer(name)
	case "sinks":
		_, deleted = s.Sink(name)
		updatedFiles = s.countEventsReferencing(func(ev EventConfig) bool { return containsID(ev.SinkIDs, name) })
		err = s.DeleteSink(name)
	case "events":
		_, deleted = s.Event(name)
		err = s.DeleteEvent(name)
	default:
		err = fmt.Errorf("configstore: unknown category %q", category)
	}
	return deleted, updatedFiles, totalFiles, err
}

func (s *Store) countEventsReferencing(pred func(EventConfig) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ev := range s.events {
		if pred(ev) {
			n++
		}
	}
	return n
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
