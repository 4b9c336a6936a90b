package configstore

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// Bundle is the full exportable snapshot of a config tree (spec
// §4.10, bundle import/export routes).
type Bundle struct {
	Root    RootConfig              `json:"root"`
	Clients map[string]ClientConfig `json:"clients"`
	Servers map[string]ServerConfig `json:"servers"`
	Events  map[string]EventConfig  `json:"events"`
	Sinks   map[string]SinkConfig   `json:"sinks"`
}

// ImportMode selects how an imported bundle combines with the
// existing store.
type ImportMode string

const (
	// ImportReplace discards all existing entities before importing.
	ImportReplace ImportMode = "replace"
	// ImportMerge overlays the bundle's entities on top of the
	// existing ones, by id; an id present in both keeps the bundle's
	// copy.
	ImportMerge ImportMode = "merge"
)

// ExportBundle snapshots the current store and gzip-compresses its
// JSON encoding.
func (s *Store) ExportBundle() ([]byte, error) {
	s.mu.RLock()
	b := Bundle{
		Root:    s.root,
		Clients: copyMap(s.clients),
		Servers: copyMap(s.servers),
		Events:  copyMap(s.events),
		Sinks:   copyMap(s.sinks),
	}
	s.mu.RUnlock()

	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("configstore: marshal bundle: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, fmt.Errorf("configstore: gzip bundle: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("configstore: close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportBundle decompresses and applies data under mode, persisting
// every touched entity atomically and pruning stale cross-references
// once the merge/replace settles.
func (s *Store) ImportBundle(data []byte, mode ImportMode) error {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("configstore: open gzip bundle: %w", err)
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return fmt.Errorf("configstore: read gzip bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return fmt.Errorf("configstore: parse bundle: %w", err)
	}

	s.mu.Lock()
	if mode == ImportReplace {
		if err := s.clearAllLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
		s.clients = map[string]ClientConfig{}
		s.servers = map[string]ServerConfig{}
		s.events = map[string]EventConfig{}
		s.sinks = map[string]SinkConfig{}
	}
	s.root = b.Root
	for id, v := range b.Clients {
		s.clients[id] = v
	}
	for id, v := range b.Servers {
		s.servers[id] = v
	}
	for id, v := range b.Sinks {
		s.sinks[id] = v
	}
	for id, v := range b.Events {
		s.events[id] = v
	}
	pruneEvents(s.events, s.servers, s.sinks)
	root := s.root
	clients := copyMap(s.clients)
	servers := copyMap(s.servers)
	events := copyMap(s.events)
	sinks := copyMap(s.sinks)
	s.mu.Unlock()

	if err := s.persistAll(root, clients, servers, events, sinks); err != nil {
		return err
	}
	s.notify(ChangeEvent{Category: "root"})
	return nil
}

// clearAllLocked removes every on-disk entity file ahead of a replace
// import. Caller holds s.mu.
func (s *Store) clearAllLocked() error {
	for _, category := range []string{clientsDir, serversDir, eventsDir, sinksDir} {
		var ids []string
		switch category {
		case clientsDir:
			for id := range s.clients {
				ids = append(ids, id)
			}
		case serversDir:
			for id := range s.servers {
				ids = append(ids, id)
			}
		case eventsDir:
			for id := range s.events {
				ids = append(ids, id)
			}
		case sinksDir:
			for id := range s.sinks {
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			if err := s.deleteEntity(category, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) persistAll(root RootConfig, clients map[string]ClientConfig, servers map[string]ServerConfig, events map[string]EventConfig, sinks map[string]SinkConfig) error {
	raw, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal root: %w", err)
	}
	if err := atomicWrite(s.dir+"/"+rootFile, raw); err != nil {
		return err
	}
	for id, v := range clients {
		if err := s.writeEntity(clientsDir, id, v); err != nil {
			return err
		}
	}
	for id, v := range servers {
		if err := s.writeEntity(serversDir, id, v); err != nil {
			return err
		}
	}
	for id, v := range sinks {
		if err := s.writeEntity(sinksDir, id, v); err != nil {
			return err
		}
	}
	for id, v := range events {
		if err := s.writeEntity(eventsDir, id, v); err != nil {
			return err
		}
	}
	return nil
}

func copyMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
