package quickhash

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyFileHashesToZero(t *testing.T) {
	if got := Of(0, nil, nil); got != 0 {
		t.Errorf("Of(0, nil, nil) = %d, want 0", got)
	}
}

func TestDependsOnlyOnSizeHeadTail(t *testing.T) {
	size := uint64(10000)
	head := bytes.Repeat([]byte{0xAA}, sampleBytes)
	tail := bytes.Repeat([]byte{0xBB}, sampleBytes)

	h1 := Of(size, head, tail)
	h2 := Of(size, head, tail)
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %d != %d", h1, h2)
	}

	// The tail is part of the fingerprint: a different tail with the
	// same size and head must change the hash.
	otherTail := bytes.Repeat([]byte{0xCC}, sampleBytes)
	if Of(size, head, otherTail) == h1 {
		t.Fatal("expected hash to change when tail differs")
	}
}

func TestFileSmallAndLarge(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.bin")
	if err := os.WriteFile(small, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	hSmall, err := File(small)
	if err != nil {
		t.Fatal(err)
	}
	want := Of(5, []byte("hello"), nil)
	if hSmall != want {
		t.Errorf("small file hash = %d, want %d", hSmall, want)
	}

	large := filepath.Join(dir, "large.bin")
	content := bytes.Repeat([]byte{0x01}, sampleBytes+100)
	for i := range content[sampleBytes:] {
		content[sampleBytes+i] = byte(i)
	}
	if err := os.WriteFile(large, content, 0o644); err != nil {
		t.Fatal(err)
	}
	hLarge, err := File(large)
	if err != nil {
		t.Fatal(err)
	}
	wantLarge := Of(uint64(len(content)), content[:sampleBytes], content[len(content)-sampleBytes:])
	if hLarge != wantLarge {
		t.Errorf("large file hash = %d, want %d", hLarge, wantLarge)
	}
}

func TestSameSizeDifferentMiddleSameHash(t *testing.T) {
	dir := t.TempDir()
	size := sampleBytes*2 + 50

	a := bytes.Repeat([]byte{0x00}, size)
	b := bytes.Repeat([]byte{0x00}, size)
	// Differ only in the untouched middle region.
	b[sampleBytes+10] = 0xFF

	pa := filepath.Join(dir, "a.bin")
	pb := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(pa, a, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pb, b, 0o644); err != nil {
		t.Fatal(err)
	}

	ha, err := File(pa)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := File(pb)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Errorf("hashes should match when only an unsampled middle byte differs: %d != %d", ha, hb)
	}
}
