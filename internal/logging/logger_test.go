package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCreatesParentDirsAndWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "run.log")

	log, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Path() != path {
		t.Fatalf("Path() = %q, want %q", log.Path(), path)
	}

	log.Printf("stage %s finished\n", "planning")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.HasPrefix(line, "[") {
		t.Fatalf("line missing timestamp prefix: %q", line)
	}
	if !strings.Contains(line, "stage planning finished") {
		t.Fatalf("line missing message: %q", line)
	}
	if strings.Contains(line, "finished\n\n") {
		t.Fatalf("trailing newline not trimmed: %q", line)
	}
}

func TestReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	first, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first.Printf("first run")
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second.Printf("second run")
	second.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "first run") || !strings.Contains(string(data), "second run") {
		t.Fatalf("expected both runs in log:\n%s", data)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Printf("dropped")
	if log.Path() != "" {
		t.Fatalf("nil Path() = %q", log.Path())
	}
	if err := log.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestPrintfAfterCloseIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Close()
	log.Printf("late line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "late line") {
		t.Fatalf("write after close should be dropped")
	}
}
