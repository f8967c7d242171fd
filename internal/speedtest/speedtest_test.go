package speedtest_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"fileferry/internal/engine"
	"fileferry/internal/extract"
	"fileferry/internal/receiver"
	"fileferry/internal/speedtest"
	"fileferry/internal/transport"
	"fileferry/internal/wire"
)

type streamWriter struct{ s transport.Stream }

func (w streamWriter) Write(p []byte) (int, error) {
	if err := w.s.WriteAll(p); err != nil {
		return 0, err
	}
	if err := w.s.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func TestRunAndServeOnceRoundTrip(t *testing.T) {
	probe, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	probe.Close()

	dialer := transport.NewTCP()
	ln, err := dialer.Bind(port)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer ln.Close()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	sink := engine.NewSink(64)
	stop := engine.NewStopToken()

	serverDone := make(chan error, 1)
	go func() {
		stream, _, err := ln.AcceptTimeout(context.Background(), 5*time.Second)
		if err != nil {
			serverDone <- err
			return
		}
		if stream == nil {
			serverDone <- fmt.Errorf("no connection accepted")
			return
		}
		opts := receiver.Options{SaveDir: t.TempDir(), Extract: extract.Options{}}
		serverDone <- receiver.HandleConnection(stream, "127.0.0.1", opts, sink, stop)
	}()

	clientStream, err := dialer.Connect(context.Background(), addr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientStream.Shutdown()

	result, err := speedtest.Run(clientStream, addr, 256*1024, sink, stop)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.UploadMBps <= 0 || result.DownloadMBps <= 0 {
		t.Errorf("expected positive throughput, got %+v", result)
	}

	if err := wire.WriteMessage(streamWriter{clientStream}, wire.Done()); err != nil {
		t.Fatalf("WriteMessage(Done): %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Fatalf("ServeOnce: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server")
	}
}
