package textfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := "\uFEFF\r\n\r\ndef f():\r\n    return 1   \r\n\r\n"
	got := Normalize(in)
	want := "def f():\n    return 1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeKeepsInnerBlankLinesAndTabs(t *testing.T) {
	got := Normalize("a\n\n\tb\x07")
	if got != "a\n\n\tb" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snippet.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadText(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "package main\n\nfunc main() {}" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestLoadTextEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.txt")
	if err := os.WriteFile(path, []byte(" \n\t\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadText(path); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadTextMissing(t *testing.T) {
	if _, err := LoadText(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestReadLongLine(t *testing.T) {
	long := strings.Repeat("x", 100_000)
	got, err := Read(strings.NewReader(long))
	if err != nil || len(got) != len(long) {
		t.Fatalf("expected long line kept, got %d %v", len(got), err)
	}
}
