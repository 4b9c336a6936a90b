package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hycord/irc-notify/internal/adapter"
	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// extractTargetName resolves the console/channel/query name a
// discovered file maps to, mirroring orchestrator.patternForTarget's
// switch but scoped to httpapi's read-only log browsing needs.
func extractTargetName(d configstore.Discovery, f adapter.DiscoveredFile) string {
	var pattern *configstore.PathPattern
	switch f.Target {
	case record.TargetConsole:
		pattern = d.ConsolePattern
	case record.TargetChannel:
		pattern = d.ChannelPattern
	case record.TargetQuery:
		pattern = d.QueryPattern
	}
	return adapter.ExtractContextFromPath(f.Path, pattern)
}

func targetOrder(t record.TargetType) int {
	switch t {
	case record.TargetConsole:
		return 0
	case record.TargetChannel:
		return 1
	case record.TargetQuery:
		return 2
	default:
		return 3
	}
}

type logTargetEntry struct {
	Path       string `json:"path"`
	Target     string `json:"target"`
	Name       string `json:"name"`
	ServerHint string `json:"serverHint,omitempty"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`
}

// handleLogTargets enumerates a client's discoverable console/channel/
// query files, stable-sorted console first then channels/queries A→Z
// (spec §4.10 GET /api/logs/targets).
func (s *Server) handleLogTargets(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	serverID := r.URL.Query().Get("serverId")

	c, ok := s.store.Client(clientID)
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	files, err := adapter.Discover(c.LogDirectory, c.Discovery)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	targets := make([]logTargetEntry, 0, len(files))
	for _, f := range files {
		hint := adapter.ExtractContextFromPath(f.Path, c.Discovery.ServerPattern)
		if serverID != "" && hint != serverID {
			continue
		}
		var size int64
		var modified string
		if info, err := os.Stat(f.Path); err == nil {
			size = info.Size()
			modified = info.ModTime().UTC().Format("2006-01-02T15:04:05Z")
		}
		targets = append(targets, logTargetEntry{
			Path:       f.Path,
			Target:     string(f.Target),
			Name:       extractTargetName(c.Discovery, f),
			ServerHint: hint,
			Size:       size,
			ModifiedAt: modified,
		})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		oi, oj := targetOrder(record.TargetType(targets[i].Target)), targetOrder(record.TargetType(targets[j].Target))
		if oi != oj {
			return oi < oj
		}
		return targets[i].Name < targets[j].Name
	})
	writeJSON(w, http.StatusOK, targets)
}

// handleLogMessages returns a line window from the most recently
// modified file backing clientId/serverId/target/type (spec §4.10 GET
// /api/logs/messages).
func (s *Server) handleLogMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, ok := s.store.Client(q.Get("clientId"))
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	serverID := q.Get("serverId")
	target := q.Get("target")
	typ := q.Get("type")

	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	files, err := adapter.Discover(c.LogDirectory, c.Discovery)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var bestPath string
	var bestInfo os.FileInfo
	for _, f := range files {
		if typ != "" && string(f.Target) != typ {
			continue
		}
		if target != "" && extractTargetName(c.Discovery, f) != target {
			continue
		}
		if serverID != "" && adapter.ExtractContextFromPath(f.Path, c.Discovery.ServerPattern) != serverID {
			continue
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		if bestInfo == nil || info.ModTime().After(bestInfo.ModTime()) {
			bestPath, bestInfo = f.Path, info
		}
	}
	if bestInfo == nil {
		writeError(w, http.StatusNotFound, "no log file matches that target")
		return
	}

	lines, err := readLines(bestPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	window, hasMore := paginate(lines, offset, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalLines":    len(lines),
		"offset":        offset,
		"limit":         limit,
		"returnedLines": len(window),
		"hasMore":       hasMore,
		"fileSize":      bestInfo.Size(),
		"fileSizeHuman": humanize.Bytes(uint64(bestInfo.Size())),
		"lastModified":  bestInfo.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		"lines":         window,
	})
}

// handleLogDiscover returns a client-grouped, filterable listing of
// discovered files with their extracted target/server metadata (spec
// §4.10 GET /api/logs/discover).
func (s *Server) handleLogDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientIDFilter := strings.ToLower(q.Get("clientId"))
	serverIDFilter := strings.ToLower(q.Get("serverId"))
	serverFilter := strings.ToLower(q.Get("server"))
	channelFilter := strings.ToLower(q.Get("channel"))
	queryFilter := strings.ToLower(q.Get("query"))
	typeFilter := strings.ToLower(q.Get("type"))

	out := map[string][]map[string]interface{}{}
	for _, c := range s.store.Clients() {
		if clientIDFilter != "" && strings.ToLower(c.ID) != clientIDFilter {
			continue
		}
		files, err := adapter.Discover(c.LogDirectory, c.Discovery)
		if err != nil {
			continue
		}
		entries := make([]map[string]interface{}, 0, len(files))
		for _, f := range files {
			if typeFilter != "" && strings.ToLower(string(f.Target)) != typeFilter {
				continue
			}
			name := extractTargetName(c.Discovery, f)
			hint := adapter.ExtractContextFromPath(f.Path, c.Discovery.ServerPattern)
			if serverIDFilter != "" && strings.ToLower(hint) != serverIDFilter {
				continue
			}
			if serverFilter != "" && strings.ToLower(hint) != serverFilter {
				continue
			}
			if f.Target == record.TargetChannel && channelFilter != "" && strings.ToLower(name) != channelFilter {
				continue
			}
			if f.Target == record.TargetQuery && queryFilter != "" && strings.ToLower(name) != queryFilter {
				continue
			}
			entries = append(entries, map[string]interface{}{
				"path":       f.Path,
				"target":     f.Target,
				"name":       name,
				"serverHint": hint,
			})
		}
		out[c.ID] = entries
	}
	writeJSON(w, http.StatusOK, out)
}

// handleLogRead returns a line window from one file, identified by an
// absolute or client-relative path, resolved against every enabled
// client's logDirectory so the caller never needs a clientId (spec
// §4.10 GET /api/logs/read; path safety per §4.10's closing
// paragraph).
func (s *Server) handleLogRead(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.resolveLogPath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10000
	}

	lines, err := readLines(resolved)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	info, err := os.Stat(resolved)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	window, hasMore := paginate(lines, offset, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":          r.URL.Query().Get("path"),
		"totalLines":    len(lines),
		"offset":        offset,
		"limit":         limit,
		"returnedLines": len(window),
		"hasMore":       hasMore,
		"fileSize":      info.Size(),
		"fileSizeHuman": humanize.Bytes(uint64(info.Size())),
		"modified":      info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		"lines":         window,
	})
}

// handleLogTail returns the last N lines of one file (spec §4.10 GET
// /api/logs/tail), resolved with the same path safety as
// handleLogRead.
func (s *Server) handleLogTail(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.resolveLogPath(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	requested, _ := strconv.Atoi(r.URL.Query().Get("lines"))
	if requested <= 0 {
		requested = 100
	}

	lines, err := readLines(resolved)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	info, err := os.Stat(resolved)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	start := len(lines) - requested
	if start < 0 {
		start = 0
	}
	tail := lines[start:]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":          r.URL.Query().Get("path"),
		"totalLines":    len(lines),
		"requestedLines": requested,
		"returnedLines": len(tail),
		"fileSize":      info.Size(),
		"fileSizeHuman": humanize.Bytes(uint64(info.Size())),
		"modified":      info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		"lines":         tail,
	})
}

// resolveLogPath accepts either an absolute path (as returned by
// /api/logs/discover) or a path relative to a client's logDirectory,
// and rejects it unless it resolves strictly inside at least one
// enabled client's configured logDirectory (spec §4.10: "every path
// query value must resolve ... to a file strictly inside at least one
// enabled client's logDirectory. Otherwise 403").
func (s *Server) resolveLogPath(raw string) (string, error) {
	if !s.fileOpsEnabled {
		return "", errBadPath("file operations are disabled")
	}
	if raw == "" {
		return "", errBadPath("path is required")
	}
	for _, c := range s.store.Clients() {
		if !c.Enabled {
			continue
		}
		baseAbs, err := filepath.Abs(c.LogDirectory)
		if err != nil {
			continue
		}
		var candidate string
		if filepath.IsAbs(raw) {
			candidate = filepath.Clean(raw)
		} else {
			candidate = filepath.Join(baseAbs, raw)
		}
		if strings.HasPrefix(candidate, baseAbs+string(filepath.Separator)) {
			return candidate, nil
		}
	}
	return "", errBadPath("path does not resolve inside any enabled client's log directory")
}

// readLines reads the whole file and splits it into lines, dropping a
// single trailing newline the way a text editor would.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\n"), nil
}

// paginate returns lines[offset:offset+limit], clamped to bounds, and
// whether more lines remain past the returned window.
func paginate(lines []string, offset, limit int) ([]string, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end], end < len(lines)
}

type errBadPath string

func (e errBadPath) Error() string { return string(e) }
