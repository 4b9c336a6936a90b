package httpapi

import (
	"net/http"
	"runtime"
	"time"
)

// version is set at build time via -ldflags; "dev" otherwise.
var version = "dev"

// handleHealthz is an unauthenticated liveness probe outside /api, for
// orchestrators (k8s, systemd) that poll health without a bearer
// token.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":   version,
		"goVersion": runtime.Version(),
	})
}

type statusCategory struct {
	Total   int                      `json:"total"`
	Enabled int                      `json:"enabled"`
	List    []map[string]interface{} `json:"list"`
}

// handleStatus returns the flat status object described in spec §4.10:
// running/reloading flags, one {total, enabled, list[...]} block per
// config category, watcher count, and the config paths.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := &s.orch.Stats

	clients := s.store.Clients()
	clientList := make([]map[string]interface{}, 0, len(clients))
	enabledClients := 0
	for _, c := range clients {
		if c.Enabled {
			enabledClients++
		}
		clientList = append(clientList, map[string]interface{}{"id": c.ID, "enabled": c.Enabled, "type": c.Type, "name": c.Name})
	}

	servers := s.store.Servers()
	serverList := make([]map[string]interface{}, 0, len(servers))
	enabledServers := 0
	for _, v := range servers {
		if v.Enabled {
			enabledServers++
		}
		serverList = append(serverList, map[string]interface{}{"id": v.ID, "enabled": v.Enabled, "hostname": v.Hostname, "displayName": v.DisplayName})
	}

	events := s.store.Events()
	eventList := make([]map[string]interface{}, 0, len(events))
	enabledEvents := 0
	for _, v := range events {
		if v.Enabled {
			enabledEvents++
		}
		eventList = append(eventList, map[string]interface{}{"id": v.ID, "enabled": v.Enabled, "name": v.Name, "baseEvent": v.BaseEvent, "priority": v.Priority})
	}

	sinks := s.store.Sinks()
	sinkList := make([]map[string]interface{}, 0, len(sinks))
	enabledSinks := 0
	for _, v := range sinks {
		if v.Enabled {
			enabledSinks++
		}
		sinkList = append(sinkList, map[string]interface{}{"id": v.ID, "enabled": v.Enabled, "kind": v.Kind, "name": v.Name})
	}

	root := s.store.Root()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"running":           s.orch.Running(),
		"reloading":         s.orch.Reloading(),
		"uptimeSeconds":     time.Since(s.startedAt).Seconds(),
		"watchers":          s.orch.WatcherCount(),
		"configPath":        s.store.Dir(),
		"configDirectory":   root.ConfigDirectory,
		"linesRead":         stats.LinesRead.Load(),
		"recordsParsed":     stats.RecordsParsed.Load(),
		"recordsDropped":    stats.RecordsDropped.Load(),
		"eventsMatched":     stats.EventsMatched.Load(),
		"notificationsSent": stats.NotificationsSent.Load(),
		"clients":           statusCategory{Total: len(clients), Enabled: enabledClients, List: clientList},
		"servers":           statusCategory{Total: len(servers), Enabled: enabledServers, List: serverList},
		"events":            statusCategory{Total: len(events), Enabled: enabledEvents, List: eventList},
		"sinks":             statusCategory{Total: len(sinks), Enabled: enabledSinks, List: sinkList},
	})
}
