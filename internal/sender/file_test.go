package sender

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestPlanSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := Plan([]string{path}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].RelativePath != "note.txt" {
		t.Errorf("RelativePath = %q, want note.txt", files[0].RelativePath)
	}
	if files[0].Size != 5 {
		t.Errorf("Size = %d, want 5", files[0].Size)
	}
}

func TestPlanDirectoryPreservesStructure(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "project", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "project", "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("bb"), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}

	files, err := Plan([]string{filepath.Join(root, "project")}, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })

	want := []string{"project/a.txt", "project/nested/b.txt"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f.RelativePath != want[i] {
			t.Errorf("file %d RelativePath = %q, want %q", i, f.RelativePath, want[i])
		}
	}
}

func TestPlanFlatDropsDirectoryStructure(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "project", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("bb"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := Plan([]string{filepath.Join(root, "project")}, true)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].RelativePath != "b.txt" {
		t.Errorf("RelativePath = %q, want b.txt (flat)", files[0].RelativePath)
	}
}

func TestPlanMissingPathErrors(t *testing.T) {
	if _, err := Plan([]string{"/nonexistent/path/for/fileferry/test"}, false); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}
