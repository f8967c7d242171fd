package extract

import "testing"

func TestFromFilename(t *testing.T) {
	cases := map[string]ArchiveType{
		"bundle.tar.lz4": TarLz4,
		"bundle.TAR.LZ4": TarLz4,
		"bundle.tlz4":    TarLz4,
		"bundle.tar.zst": TarZst,
		"bundle.tzst":    TarZst,
		"data.lz4":       Lz4,
		"archive.tar.gz": TarGz,
		"archive.tgz":    TarGz,
		"plain.tar":      Tar,
		"files.zip":      Zip,
		"notes.txt":      Unknown,
		"no-tar.lz4r":    Unknown,
	}
	for name, want := range cases {
		if got := FromFilename(name); got != want {
			t.Errorf("FromFilename(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsStreamable(t *testing.T) {
	if !TarLz4.IsStreamable() || !TarZst.IsStreamable() {
		t.Error("expected tar.lz4 and tar.zst to be streamable")
	}
	for _, at := range []ArchiveType{Lz4, Tar, TarGz, Zip, Unknown} {
		if at.IsStreamable() {
			t.Errorf("%v should not be streamable", at)
		}
	}
}

func TestOptionsShouldExtract(t *testing.T) {
	opts := Options{Tar: true, Zip: true}
	if !opts.ShouldExtract(Tar) || !opts.ShouldExtract(TarGz) || !opts.ShouldExtract(Zip) {
		t.Error("expected Tar/TarGz/Zip enabled")
	}
	if opts.ShouldExtract(TarLz4) || opts.ShouldExtract(Lz4) {
		t.Error("expected TarLz4/Lz4 disabled")
	}
	if !opts.AnyEnabled() {
		t.Error("expected AnyEnabled true")
	}
	if (Options{}).AnyEnabled() {
		t.Error("expected AnyEnabled false for zero value")
	}
}

func TestSafeJoinRejectsEscape(t *testing.T) {
	if _, err := safeJoin("/save", "../../etc/passwd"); err == nil {
		t.Fatal("expected error for path escaping root")
	}
	if _, err := safeJoin("/save", "a/b/../../../etc/passwd"); err == nil {
		t.Fatal("expected error for path escaping root via traversal")
	}
	got, err := safeJoin("/save", "a/b/c.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/save/a/b/c.txt"
	if got != want {
		t.Errorf("safeJoin = %q, want %q", got, want)
	}
}
