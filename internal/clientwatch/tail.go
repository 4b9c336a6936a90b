// Package clientwatch tails IRC client log files: tracking a read
// position per file, detecting rotation/truncation, and surfacing new
// lines as they're appended (spec §4.6). Grounded on GoClode's
// internal/core/db.go WatchFile, generalized here from a single
// fsnotify.Write trigger into a position-tracked multi-file tailer
// with a periodic-poll fallback for filesystems where fsnotify misses
// events (network mounts, some container overlay filesystems).
package clientwatch

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// FilePosition is the read offset a Tailer has reached in one file,
// persisted only in memory: a restart re-tails from 0 or from EOF
// depending on RescanLogsOnStartup (spec §4.6).
type FilePosition struct {
	Offset int64
}

// Tailer reads newly appended lines from a single log file, tracking
// its own read offset and detecting rotation (file replaced by a
// smaller one) or truncation (same file, truncated in place) by
// comparing the current size against the last known offset.
type Tailer struct {
	path   string
	offset int64
}

// NewTailer creates a tailer positioned at offset. Pass 0 to read the
// whole file from the start (used when rescanLogsOnStartup is set),
// or the file's current size to start tailing only new appends.
func NewTailer(path string, offset int64) *Tailer {
	return &Tailer{path: path, offset: offset}
}

// Offset returns the tailer's current read position.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// ReadNewLines opens the file, detects rotation/truncation, and
// returns every complete line appended since the last read. A final
// unterminated line (the writer hasn't flushed a trailing newline
// yet) is left for the next call rather than returned early.
func (t *Tailer) ReadNewLines() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("clientwatch: open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("clientwatch: stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		// rotation or truncation: the file is smaller than where we
		// last read from, so restart from the top.
		t.offset = 0
	}
	if info.Size() == t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("clientwatch: seek %s: %w", t.path, err)
	}

	var lines []string
	r := bufio.NewReader(f)
	readTotal := int64(0)
	for {
		line, err := r.ReadString('\n')
		readTotal += int64(len(line))
		if err == io.EOF {
			// incomplete trailing line: don't consume it, leave the
			// offset before it so the next read picks it up whole.
			readTotal -= int64(len(line))
			break
		}
		if err != nil {
			return lines, fmt.Errorf("clientwatch: read %s: %w", t.path, err)
		}
		lines = append(lines, trimNewline(line))
	}
	t.offset += readTotal
	return lines, nil
}

func trimNewline(s string) string {
	n := len(s)
	if n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
