package clientwatch

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadNewLinesFromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "line one\nline two\n")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "line one" || lines[1] != "line two" {
		t.Fatalf("got %v", lines)
	}
}

func TestReadNewLinesLeavesIncompleteTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "complete\nincomplete")

	tailer := NewTailer(path, 0)
	lines, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "complete" {
		t.Fatalf("expected only the complete line, got %v", lines)
	}

	// appending the newline should surface the previously-incomplete line
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString(" now done\n")
	f.Close()

	lines, err = tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "incomplete now done" {
		t.Fatalf("got %v", lines)
	}
}

func TestReadNewLinesDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "aaaaaaaaaa\nbbbbbbbbbb\n")

	tailer := NewTailer(path, 0)
	if _, err := tailer.ReadNewLines(); err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if tailer.Offset() == 0 {
		t.Fatal("expected nonzero offset after first read")
	}

	// simulate log rotation: file replaced by a much shorter one
	writeFile(t, path, "fresh\n")
	lines, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines after rotation: %v", err)
	}
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("expected rotation to reset to offset 0, got %v", lines)
	}
}

func TestReadNewLinesNoChangeReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "console.log")
	writeFile(t, path, "one line\n")

	tailer := NewTailer(path, 0)
	if _, err := tailer.ReadNewLines(); err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	lines, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no new lines, got %v", lines)
	}
}
