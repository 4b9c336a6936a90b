package adapter

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// DiscoveredFile is one log file found under a client's log directory,
// tagged with the target type its glob bucket implies.
type DiscoveredFile struct {
	Path   string
	Target record.TargetType
}

// Discover expands a client's console/channel/query globs (relative
// to its LogDirectory) into the concrete files currently on disk.
// Globs are evaluated independently and a file matched by more than
// one bucket is kept once, attributed to the first bucket that
// claimed it (console, then channel, then query).
func Discover(clientDir string, d configstore.Discovery) ([]DiscoveredFile, error) {
	seen := map[string]bool{}
	var out []DiscoveredFile

	buckets := []struct {
		globs  []string
		target record.TargetType
	}{
		{d.ConsoleGlobs, record.TargetConsole},
		{d.ChannelGlobs, record.TargetChannel},
		{d.QueryGlobs, record.TargetQuery},
	}

	for _, b := range buckets {
		for _, g := range b.globs {
			pattern := g
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(clientDir, pattern)
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("adapter: glob %q: %w", pattern, err)
			}
			for _, m := range matches {
				if seen[m] {
					continue
				}
				seen[m] = true
				out = append(out, DiscoveredFile{Path: m, Target: b.target})
			}
		}
	}
	return out, nil
}

// ExtractContextFromPath applies a PathPattern's regex to path and
// returns the named group it declares, or "" if the pattern is nil,
// fails to compile, or does not match. Used to pull the target name
// (channel/query nick) or the server hostname out of a log file's
// path when the client's log layout encodes it there.
func ExtractContextFromPath(path string, pattern *configstore.PathPattern) string {
	if pattern == nil || pattern.Pattern == "" {
		return ""
	}
	re, err := regexp.Compile(pattern.Pattern)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	names := re.SubexpNames()
	for i, name := range names {
		if name != "" && name == pattern.Group && i < len(m) {
			return m[i]
		}
	}
	// no named group declared: fall back to the first capture group.
	if pattern.Group == "" && len(m) > 1 {
		return m[1]
	}
	return ""
}
