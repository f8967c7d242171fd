package sender

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"fileferry/internal/compress"
	"fileferry/internal/engine"
	"fileferry/internal/quickhash"
	"fileferry/internal/stats"
	"fileferry/internal/transport"
	"fileferry/internal/wire"
)

// Options configures one target's transfer. EnableResume is kept for
// callers that want to record their own intent in telemetry/CLI help,
// but it never overrides the receiver's resume-ack: resume is the
// receiver's decision per spec.md §3, so whatever offset it grants is
// always honored here regardless of this flag.
type Options struct {
	Compress     bool
	EnableResume bool
	Transport    transport.Kind
}

// SendToTarget connects to addr, offers every file in order, and sends
// Done once the last one completes. It is meant to be called from its
// own goroutine per target; all progress and lifecycle facts go
// through sink, and stop is checked before every blocking step.
func SendToTarget(ctx context.Context, targetIdx int, addr string, files []File, opts Options, sink engine.Sink, stop *engine.StopToken) error {
	dialer, err := transport.New(opts.Transport)
	if err != nil {
		return fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}

	stream, err := dialer.Connect(ctx, addr)
	if err != nil {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventConnectionError, Target: addr, Reason: err.Error()})
		return fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}
	defer stream.Shutdown()

	engine.Emit(sink, stop, engine.Event{Kind: engine.EventConnected, Target: addr, FileIndex: targetIdx})

	for idx, file := range files {
		if stop.Stopped() {
			return fmt.Errorf("sender: %w", engine.ErrCancelled)
		}
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileStarted, Target: addr, File: file.RelativePath, FileIndex: idx})

		skipped, err := sendOneFile(stream, addr, idx, file, opts, sink, stop)
		if err != nil {
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileError, Target: addr, File: file.RelativePath, FileIndex: idx, Reason: err.Error()})
			return err
		}
		if skipped {
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileSkipped, Target: addr, File: file.RelativePath, FileIndex: idx})
		} else {
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileCompleted, Target: addr, File: file.RelativePath, FileIndex: idx})
		}
	}

	if err := wire.WriteMessage(streamWriter{stream}, wire.Done()); err != nil {
		return fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}
	engine.Emit(sink, stop, engine.Event{Kind: engine.EventTargetCompleted, Target: addr})
	return nil
}

// sendOneFile offers one file and streams its bytes; it returns
// skipped=true when the receiver already has an up-to-date copy.
func sendOneFile(stream transport.Stream, addr string, idx int, file File, opts Options, sink engine.Sink, stop *engine.StopToken) (bool, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return false, fmt.Errorf("sender: %w: %v", engine.ErrIO, err)
	}
	defer f.Close()

	quickHash, err := quickhash.File(file.Path)
	if err != nil {
		quickHash = 0
	}

	start := wire.FileStart(file.RelativePath, file.Size, opts.Compress, 0, quickHash)
	if err := wire.WriteMessage(streamWriter{stream}, start); err != nil {
		return false, fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}

	reply, err := wire.ReadMessage(streamReader{stream})
	if err != nil {
		return false, fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}

	var startOffset uint64
	switch reply.Tag {
	case wire.TagAck:
		startOffset = 0
	case wire.TagResumeAck:
		startOffset = reply.Offset
	case wire.TagCancel:
		return false, fmt.Errorf("sender: %w: receiver cancelled", engine.ErrCancelled)
	case wire.TagError:
		return false, fmt.Errorf("sender: %w: %s", engine.ErrProtocol, reply.Text)
	default:
		return false, fmt.Errorf("sender: %w: unexpected response to file offer", engine.ErrProtocol)
	}

	// Resume is the receiver's decision (spec.md §3): whatever offset it
	// returns in resume-ack is honored here regardless of this sender's
	// own --no-resume setting, so the two sides can never desync over
	// bytes the receiver has already acknowledged.
	if startOffset >= file.Size && file.Size > 0 {
		return true, nil
	}

	if startOffset > 0 {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileResumed, Target: addr, File: file.RelativePath, FileIndex: idx, Offset: startOffset})
		if _, err := f.Seek(int64(startOffset), io.SeekStart); err != nil {
			return false, fmt.Errorf("sender: %w: %v", engine.ErrIO, err)
		}
	}

	tr := stats.NewTransfer(file.Size, 1)
	buffer := make([]byte, stats.MaxChunkSize)
	transferred := startOffset
	lastEmit := time.Time{}

	for {
		if stop.Stopped() {
			return false, fmt.Errorf("sender: %w", engine.ErrCancelled)
		}

		readSize := tr.ChunkSize()
		if readSize > len(buffer) {
			readSize = len(buffer)
		}
		n, err := f.Read(buffer[:readSize])
		if n == 0 && err == io.EOF {
			break
		}
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("sender: %w: %v", engine.ErrIO, err)
		}

		chunkData := buffer[:n]
		originalSize := uint64(n)
		if opts.Compress {
			chunkData = compress.Compress(buffer[:n])
		}

		if err := wire.WriteMessage(streamWriter{stream}, wire.FileChunk(chunkData, originalSize)); err != nil {
			return false, fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
		}

		transferred += uint64(n)
		tr.Update(uint64(n), originalSize, uint64(len(chunkData)))

		if time.Since(lastEmit) >= time.Second {
			lastEmit = time.Now()
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventProgress, Target: addr, File: file.RelativePath, FileIndex: idx, Transferred: transferred, TotalBytes: file.Size, OriginalBytes: tr.Transferred()})
		}

		if err == io.EOF {
			break
		}
	}

	engine.Emit(sink, stop, engine.Event{Kind: engine.EventProgress, Target: addr, File: file.RelativePath, FileIndex: idx, Transferred: transferred, TotalBytes: file.Size})

	if err := wire.WriteMessage(streamWriter{stream}, wire.FileEnd()); err != nil {
		return false, fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}

	ack, err := wire.ReadMessage(streamReader{stream})
	if err != nil {
		return false, fmt.Errorf("sender: %w: %v", engine.ErrTransport, err)
	}
	switch ack.Tag {
	case wire.TagAck:
		return false, nil
	case wire.TagCancel:
		return false, fmt.Errorf("sender: %w: receiver cancelled", engine.ErrCancelled)
	case wire.TagError:
		return false, fmt.Errorf("sender: %w: %s", engine.ErrProtocol, ack.Text)
	default:
		return false, fmt.Errorf("sender: %w: unexpected response after file end", engine.ErrProtocol)
	}
}

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
