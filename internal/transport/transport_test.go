package transport

import (
	"context"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, k := range []string{"tcp", "quic", "kcp", "udp"} {
		if _, err := ParseKind(k); err != nil {
			t.Errorf("ParseKind(%q) unexpected error: %v", k, err)
		}
	}
	if _, err := ParseKind("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown transport kind")
	}
}

func TestTCPRoundTrip(t *testing.T) {
	dialer := NewTCP()
	ln, err := dialer.Bind(0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer ln.Close()

	addr := ln.(*tcpListener).ln.Addr().String()

	done := make(chan error, 1)
	go func() {
		stream, _, err := ln.Accept(context.Background())
		if err != nil {
			done <- err
			return
		}
		buf := make([]byte, 5)
		if err := stream.ReadExact(buf); err != nil {
			done <- err
			return
		}
		if string(buf) != "hello" {
			done <- errString("unexpected payload")
			return
		}
		done <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := dialer.Connect(ctx, addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := stream.WriteAll([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := stream.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server")
	}
}

func TestTCPAcceptTimeoutReturnsNilOnIdle(t *testing.T) {
	dialer := NewTCP()
	ln, err := dialer.Bind(0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer ln.Close()

	stream, addr, err := ln.AcceptTimeout(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error on idle accept-timeout: %v", err)
	}
	if stream != nil || addr != "" {
		t.Fatalf("expected nil stream/empty addr on timeout, got %v %q", stream, addr)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
