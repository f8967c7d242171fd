package receiver

import (
	"errors"
	"path/filepath"
	"testing"

	"fileferry/internal/engine"
)

func TestSafeJoinAcceptsOrdinaryRelativePath(t *testing.T) {
	got, err := SafeJoin("/save", "project/file.txt")
	if err != nil {
		t.Fatalf("SafeJoin: %v", err)
	}
	want := filepath.Join("/save", "project", "file.txt")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSafeJoinRejectsParentEscape(t *testing.T) {
	_, err := SafeJoin("/save", "../../etc/passwd")
	if !errors.Is(err, engine.ErrPathEscape) {
		t.Fatalf("got %v, want ErrPathEscape", err)
	}
}

func TestSafeJoinRejectsAbsolutePath(t *testing.T) {
	_, err := SafeJoin("/save", "/etc/passwd")
	if !errors.Is(err, engine.ErrPathEscape) {
		t.Fatalf("got %v, want ErrPathEscape", err)
	}
}

func TestSafeJoinRejectsEmbeddedDotDot(t *testing.T) {
	_, err := SafeJoin("/save", "a/../../b")
	if !errors.Is(err, engine.ErrPathEscape) {
		t.Fatalf("got %v, want ErrPathEscape", err)
	}
}
