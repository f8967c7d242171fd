package compress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("Hello, World! This is a test of LZ4 compression."),
		[]byte(strings.Repeat("a", 4096)),
		{},
		[]byte("x"),
	}
	for _, original := range cases {
		compressed := Compress(original)
		decompressed, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if !bytes.Equal(original, decompressed) {
			t.Errorf("round-trip mismatch: got %q, want %q", decompressed, original)
		}
	}
}

func TestDecompressRejectsShortPayload(t *testing.T) {
	if _, err := Decompress([]byte{1, 2}); err == nil {
		t.Fatal("expected error for payload shorter than size header")
	}
}
