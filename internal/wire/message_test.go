package wire

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		FileStart("a/b.txt", 1024, true, 0, 0xdeadbeef),
		FileChunk([]byte("hello world"), 11),
		FileEnd(),
		Ack(),
		ResumeAck(512),
		Cancel(),
		Done(),
		Error("boom"),
		SpeedTestRequest(10 * 1024 * 1024),
		SpeedTestReady(),
		SpeedTestData([]byte{1, 2, 3, 4}),
		SpeedTestEnd(),
		SpeedTestResult(12.5, 8.25, 1.75),
	}

	for _, m := range cases {
		body, err := Encode(m)
		if err != nil {
			t.Fatalf("encode %v: %v", m.Tag, err)
		}
		got, err := Decode(body)
		if err != nil {
			t.Fatalf("decode %v: %v", m.Tag, err)
		}
		if !messagesEqual(m, got) {
			t.Errorf("round-trip mismatch for tag %d: got %+v, want %+v", m.Tag, got, m)
		}
	}
}

func messagesEqual(a, b Message) bool {
	return a.Tag == b.Tag &&
		a.RelativePath == b.RelativePath &&
		a.Size == b.Size &&
		a.Compressed == b.Compressed &&
		a.OffsetHint == b.OffsetHint &&
		a.QuickHash == b.QuickHash &&
		bytes.Equal(a.Payload, b.Payload) &&
		a.OriginalSize == b.OriginalSize &&
		a.Offset == b.Offset &&
		a.Text == b.Text &&
		a.SpeedSize == b.SpeedSize &&
		bytes.Equal(a.Data, b.Data) &&
		a.UploadMBps == b.UploadMBps &&
		a.DownloadMBps == b.DownloadMBps &&
		a.RTTMillis == b.RTTMillis
}

func TestWriteReadMessage(t *testing.T) {
	var buf bytes.Buffer
	msgs := []Message{
		FileStart("file.bin", 4096, false, 0, 0),
		FileChunk([]byte("chunk-data"), 10),
		FileEnd(),
	}
	for _, m := range msgs {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, want := range msgs {
		got, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !messagesEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff}) // length header far beyond MaxPayload
	if _, err := ReadMessage(&buf); err == nil {
		t.Fatal("expected error for oversized frame length")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	if _, err := Decode([]byte{0xfe}); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	body, err := Encode(FileStart("x", 1, false, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(body[:len(body)-2]); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
