package adapter

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/hycord/irc-notify/internal/configstore"
)

// DiscoveredServer is one server hostname surfaced by a client's
// server-discovery configuration, before it is reconciled against the
// configstore's known ServerConfig entries.
type DiscoveredServer struct {
	Hostname string
}

// DiscoverServers resolves a client's ServerDiscovery config into a
// list of hostnames, branching on Mode. Unknown modes return an error
// rather than silently discovering nothing.
func DiscoverServers(clientDir string, sd configstore.ServerDiscovery) ([]DiscoveredServer, error) {
	switch sd.Mode {
	case configstore.ServerDiscoveryStatic:
		return discoverStatic(sd), nil
	case configstore.ServerDiscoveryFilesystem:
		return discoverFilesystem(clientDir, sd)
	case configstore.ServerDiscoveryJSON:
		return discoverJSON(clientDir, sd)
	case configstore.ServerDiscoverySQLite:
		return discoverSQLite(clientDir, sd)
	default:
		return nil, fmt.Errorf("adapter: unknown server discovery mode %q", sd.Mode)
	}
}

func discoverStatic(sd configstore.ServerDiscovery) []DiscoveredServer {
	out := make([]DiscoveredServer, 0, len(sd.Static))
	for _, s := range sd.Static {
		out = append(out, DiscoveredServer{Hostname: s.Hostname})
	}
	return out
}

// discoverFilesystem lists directories/files matching sd.Glob (relative
// to clientDir) and extracts a hostname from each path via
// HostnamePattern, the way log clients that lay out one directory per
// server typically expose the server name only in the path.
func discoverFilesystem(clientDir string, sd configstore.ServerDiscovery) ([]DiscoveredServer, error) {
	pattern := sd.Glob
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(clientDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("adapter: glob %q: %w", pattern, err)
	}

	var re *regexp.Regexp
	if sd.HostnamePattern != "" {
		re, err = regexp.Compile(sd.HostnamePattern)
		if err != nil {
			return nil, fmt.Errorf("adapter: compile hostnamePattern: %w", err)
		}
	}

	seen := map[string]bool{}
	var out []DiscoveredServer
	for _, m := range matches {
		hostname := filepath.Base(m)
		if re != nil {
			if sub := re.FindStringSubmatch(m); sub != nil && len(sub) > 1 {
				hostname = sub[1]
			}
		}
		if hostname == "" || seen[hostname] {
			continue
		}
		seen[hostname] = true
		out = append(out, DiscoveredServer{Hostname: hostname})
	}
	return out, nil
}

// discoverJSON reads a JSON array file at sd.JSONPath and pulls
// sd.HostnameField out of each element.
func discoverJSON(clientDir string, sd configstore.ServerDiscovery) ([]DiscoveredServer, error) {
	path := sd.JSONPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(clientDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adapter: read %s: %w", path, err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("adapter: parse %s: %w", path, err)
	}
	field := sd.HostnameField
	if field == "" {
		field = "hostname"
	}
	var out []DiscoveredServer
	for _, row := range rows {
		hostname, _ := row[field].(string)
		if hostname == "" {
			continue
		}
		out = append(out, DiscoveredServer{Hostname: hostname})
	}
	return out, nil
}

// discoverSQLite runs sd.SQLiteQuery against sd.SQLitePath (a
// modernc.org/sqlite database, pure-Go so the daemon stays
// cgo-free) and expects a single hostname column per row.
func discoverSQLite(clientDir string, sd configstore.ServerDiscovery) ([]DiscoveredServer, error) {
	path := sd.SQLitePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(clientDir, path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("adapter: open sqlite %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(sd.SQLiteQuery)
	if err != nil {
		return nil, fmt.Errorf("adapter: query sqlite server discovery: %w", err)
	}
	defer rows.Close()

	var out []DiscoveredServer
	for rows.Next() {
		var hostname string
		if err := rows.Scan(&hostname); err != nil {
			return nil, fmt.Errorf("adapter: scan sqlite row: %w", err)
		}
		out = append(out, DiscoveredServer{Hostname: hostname})
	}
	return out, rows.Err()
}
