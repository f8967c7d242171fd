// Package speedtest measures upload/download throughput and round-trip
// latency to one target over an already-connected transport stream
// (spec.md §4.10): five Ack ping-pongs averaged for latency, then a
// timed 64KiB-chunked upload phase and download phase.
package speedtest

import (
	"fmt"
	"time"

	"fileferry/internal/engine"
	"fileferry/internal/transport"
	"fileferry/internal/wire"
)

const (
	// DefaultSize is the default payload size moved in each direction
	// when no explicit --size is given.
	DefaultSize = 10 * 1024 * 1024
	chunkSize   = 64 * 1024
	pingCount   = 5
)

// Result is the measured outcome of one speed test run.
type Result struct {
	UploadMBps   float64
	DownloadMBps float64
	RTTMillis    float64
}

// Run drives the client side of a speed test against an already-dialed
// stream: ping, then upload, then download. The upload and download
// phases match ServeOnce message-for-message; the ping Acks are answered
// by the receiver's IDLE loop before ServeOnce is entered.
func Run(stream transport.Stream, target string, size uint64, sink engine.Sink, stop *engine.StopToken) (Result, error) {
	engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestStarted, Target: target})

	rtt, err := measureLatency(stream)
	if err != nil {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestError, Target: target, Reason: err.Error()})
		return Result{}, err
	}

	if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestRequest(size)); err != nil {
		return Result{}, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}
	ready, err := wire.ReadMessage(streamReader{stream})
	if err != nil {
		return Result{}, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}
	switch ready.Tag {
	case wire.TagSpeedTestReady:
	case wire.TagError:
		return Result{}, fmt.Errorf("speedtest: %w: peer refused: %s", engine.ErrProtocol, ready.Text)
	default:
		return Result{}, fmt.Errorf("speedtest: %w: unexpected response to request", engine.ErrProtocol)
	}

	engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "upload", Percent: 0})
	uploadMBps, err := runUpload(stream, target, size, sink, stop)
	if err != nil {
		return Result{}, err
	}

	ackAfterUpload, err := wire.ReadMessage(streamReader{stream})
	if err != nil {
		return Result{}, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}
	if ackAfterUpload.Tag != wire.TagAck {
		return Result{}, fmt.Errorf("speedtest: %w: expected ack after upload", engine.ErrProtocol)
	}

	engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "download", Percent: 0})
	downloadMBps, err := runDownload(stream, target, size, sink, stop)
	if err != nil {
		return Result{}, err
	}

	if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
		return Result{}, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}

	result := Result{UploadMBps: uploadMBps, DownloadMBps: downloadMBps, RTTMillis: rtt}
	engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestCompleted, Target: target, UploadMBps: result.UploadMBps, DownloadMBps: result.DownloadMBps, RTTMillis: result.RTTMillis})
	return result, nil
}

func measureLatency(stream transport.Stream) (float64, error) {
	var total time.Duration
	for i := 0; i < pingCount; i++ {
		start := time.Now()
		if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
			return 0, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		if _, err := wire.ReadMessage(streamReader{stream}); err != nil {
			return 0, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		total += time.Since(start)
	}
	return total.Seconds() * 1000.0 / float64(pingCount), nil
}

func runUpload(stream transport.Stream, target string, size uint64, sink engine.Sink, stop *engine.StopToken) (float64, error) {
	payload := make([]byte, chunkSize)
	for i := range payload {
		payload[i] = 0xAB
	}

	var sent uint64
	start := time.Now()
	lastEmit := time.Time{}
	for sent < size {
		if stop.Stopped() {
			return 0, fmt.Errorf("speedtest: %w", engine.ErrCancelled)
		}
		remaining := size - sent
		toSend := uint64(chunkSize)
		if remaining < toSend {
			toSend = remaining
		}
		if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestData(payload[:toSend])); err != nil {
			return 0, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		sent += toSend
		if time.Since(lastEmit) >= time.Second {
			lastEmit = time.Now()
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "upload", Percent: int(float64(sent) / float64(size) * 100)})
		}
	}
	if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestEnd()); err != nil {
		return 0, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}
	engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "upload", Percent: 100})

	elapsed := time.Since(start).Seconds()
	if elapsed < 0.001 {
		elapsed = 0.001
	}
	return float64(size) / 1024 / 1024 / elapsed, nil
}

func runDownload(stream transport.Stream, target string, size uint64, sink engine.Sink, stop *engine.StopToken) (float64, error) {
	var received uint64
	start := time.Now()
	lastEmit := time.Time{}

	for {
		if stop.Stopped() {
			return 0, fmt.Errorf("speedtest: %w", engine.ErrCancelled)
		}
		msg, err := wire.ReadMessage(streamReader{stream})
		if err != nil {
			return 0, fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		switch msg.Tag {
		case wire.TagSpeedTestData:
			received += uint64(len(msg.Data))
			if time.Since(lastEmit) >= time.Second {
				lastEmit = time.Now()
				pct := float64(received) / float64(size) * 100
				if pct > 100 {
					pct = 100
				}
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "download", Percent: int(pct)})
			}
		case wire.TagSpeedTestEnd:
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventSpeedTestProgress, Target: target, Reason: "download", Percent: 100})
			elapsed := time.Since(start).Seconds()
			if elapsed < 0.001 {
				elapsed = 0.001
			}
			return float64(received) / 1024 / 1024 / elapsed, nil
		case wire.TagError:
			return 0, fmt.Errorf("speedtest: %w: %s", engine.ErrProtocol, msg.Text)
		default:
			return 0, fmt.Errorf("speedtest: %w: unexpected message in download phase", engine.ErrProtocol)
		}
	}
}

// ServeOnce runs the server side of a speed test once the caller has
// read the SpeedTestRequest: it replies SpeedTestReady, then mirrors
// Run's upload and download phases message-for-message. It does not
// answer the latency pings; those are handled before it is called.
func ServeOnce(stream transport.Stream, size uint64) error {
	if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestReady()); err != nil {
		return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}

	for {
		msg, err := wire.ReadMessage(streamReader{stream})
		if err != nil {
			return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		switch msg.Tag {
		case wire.TagSpeedTestData:
		case wire.TagSpeedTestEnd:
			goto uploadDone
		default:
			return fmt.Errorf("speedtest: %w: unexpected message during upload", engine.ErrProtocol)
		}
	}
uploadDone:

	if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
		return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}

	payload := make([]byte, chunkSize)
	for i := range payload {
		payload[i] = 0xCD
	}
	var sent uint64
	for sent < size {
		remaining := size - sent
		toSend := uint64(chunkSize)
		if remaining < toSend {
			toSend = remaining
		}
		if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestData(payload[:toSend])); err != nil {
			return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
		}
		sent += toSend
	}
	if err := wire.WriteMessage(streamWriter{stream}, wire.SpeedTestEnd()); err != nil {
		return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}

	ack, err := wire.ReadMessage(streamReader{stream})
	if err != nil {
		return fmt.Errorf("speedtest: %w: %v", engine.ErrTransport, err)
	}
	if ack.Tag != wire.TagAck {
		return fmt.Errorf("speedtest: %w: expected final ack", engine.ErrProtocol)
	}
	return nil
}

// streamReader/streamWriter adapt transport.Stream for wire's frame
// codec the same way the receiver package's adapters do; duplicated
// here rather than exported from receiver to keep the two packages
// independent of each other.
type streamReader struct{ s transport.Stream }

func (r streamReader) Read(p []byte) (int, error) { return r.s.Read(p) }

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
