package receiver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fileferry/internal/compress"
	"fileferry/internal/engine"
	"fileferry/internal/extract"
	"fileferry/internal/speedtest"
	"fileferry/internal/stats"
	"fileferry/internal/transport"
	"fileferry/internal/wire"
)

// Options configures one receiver: the save directory, which archive
// types get auto-extracted, whether resume is honored, and whether a
// completed-but-unextracted archive is retained on disk pending
// extraction (the resume-from-disk branch of §4.8; default off, which
// keeps pure streaming extraction the default path).
type Options struct {
	SaveDir              string
	Extract              extract.Options
	EnableResume         bool
	SaveArchiveForResume bool
}

// HandleConnection runs the IDLE/RECEIVE_FILE/SPEEDTEST state machine
// for one accepted connection until the peer sends Done, the stop token
// fires, or a protocol violation closes the connection.
func HandleConnection(stream transport.Stream, peerAddr string, opts Options, sink engine.Sink, stop *engine.StopToken) error {
	for {
		if stop.Stopped() {
			_ = wire.WriteMessage(streamWriter{stream}, wire.Cancel())
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventCancelled, Target: peerAddr, Reason: "stopped before next message"})
			return nil
		}

		msg, err := wire.ReadMessage(streamReader{stream})
		if err != nil {
			return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}

		switch msg.Tag {
		case wire.TagFileStart:
			if err := handleFileStart(stream, peerAddr, msg, opts, sink, stop); err != nil {
				return err
			}
		case wire.TagAck:
			if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
				return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
			}
		case wire.TagSpeedTestRequest:
			if err := speedtest.ServeOnce(stream, msg.SpeedSize); err != nil {
				return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
			}
		case wire.TagDone:
			return nil
		default:
			_ = wire.WriteMessage(streamWriter{stream}, wire.Error("unexpected message in IDLE"))
		}
	}
}

func handleFileStart(stream transport.Stream, peerAddr string, start wire.Message, opts Options, sink engine.Sink, stop *engine.StopToken) error {
	dest, err := SafeJoin(opts.SaveDir, start.RelativePath)
	if err != nil {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileError, Target: peerAddr, File: start.RelativePath, Reason: err.Error()})
		return err
	}

	archiveType := extract.FromFilename(start.RelativePath)
	streamExtract := opts.Extract.ShouldExtract(archiveType) && archiveType.IsStreamable()

	if streamExtract {
		return receiveAndExtractStreaming(stream, peerAddr, dest, start, archiveType, opts, sink, stop)
	}

	filePath, err := receivePlainFile(stream, peerAddr, dest, start, opts, sink, stop)
	if err != nil {
		return err
	}
	if filePath != "" && opts.Extract.ShouldExtract(archiveType) && !archiveType.IsStreamable() {
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionStarted, Target: peerAddr, File: start.RelativePath})
		result, err := extract.Archive(filePath, filepath.Dir(filePath))
		if err != nil {
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionError, Target: peerAddr, File: start.RelativePath, Reason: err.Error()})
			return nil
		}
		_ = os.Remove(filePath)
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionCompleted, Target: peerAddr, File: start.RelativePath, FilesCount: result.FilesCount, TotalBytes: result.TotalSize})
	}
	return nil
}

// receivePlainFile implements the non-streaming write path (§4.7): it
// decides resume, replies, then reads file-chunk/file-end only,
// treating any other message as a protocol error that closes the
// connection.
func receivePlainFile(stream transport.Stream, peerAddr, dest string, start wire.Message, opts Options, sink engine.Sink, stop *engine.StopToken) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
	}

	decision, err := decideFor(dest, start, opts)
	if err != nil {
		return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
	}

	if decision.Skip {
		if err := wire.WriteMessage(streamWriter{stream}, wire.ResumeAck(decision.StartOffset)); err != nil {
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}
		engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileReceived, Target: peerAddr, File: start.RelativePath, TotalBytes: start.Size})
		return dest, nil
	}

	var f *os.File
	if decision.StartOffset > 0 {
		f, err = os.OpenFile(dest, os.O_WRONLY, 0o644)
		if err != nil {
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
		}
		if _, err := f.Seek(int64(decision.StartOffset), 0); err != nil {
			f.Close()
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
		}
		if err := wire.WriteMessage(streamWriter{stream}, wire.ResumeAck(decision.StartOffset)); err != nil {
			f.Close()
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}
	} else {
		f, err = os.Create(dest)
		if err != nil {
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
		}
		if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
			f.Close()
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}
	}
	defer f.Close()

	received := decision.StartOffset
	tr := stats.NewTransfer(start.Size, 1)
	lastEmit := time.Time{}

	for {
		if stop.Stopped() {
			f.Sync()
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventCancelled, Target: peerAddr, File: start.RelativePath, Transferred: received, Reason: "stopped by user"})
			return "", fmt.Errorf("receiver: %w", engine.ErrCancelled)
		}

		msg, err := wire.ReadMessage(streamReader{stream})
		if err != nil {
			return "", fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}

		switch msg.Tag {
		case wire.TagFileChunk:
			data := msg.Payload
			if start.Compressed {
				data, err = compress.Decompress(data)
				if err != nil {
					return "", fmt.Errorf("receiver: %w: %v", engine.ErrDecompress, err)
				}
			}
			if _, err := f.Write(data); err != nil {
				return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
			}
			received += uint64(len(data))
			tr.Update(uint64(len(data)), msg.OriginalSize, uint64(len(msg.Payload)))
			if time.Since(lastEmit) >= time.Second {
				lastEmit = time.Now()
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventProgress, Target: peerAddr, File: start.RelativePath, Transferred: received, TotalBytes: start.Size})
			}
		case wire.TagFileEnd:
			if err := f.Sync(); err != nil {
				return "", fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
			}
			if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
				return "", fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
			}
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileReceived, Target: peerAddr, File: start.RelativePath, Transferred: received, TotalBytes: start.Size})
			return dest, nil
		default:
			return "", fmt.Errorf("receiver: %w: unexpected message while receiving %q", engine.ErrProtocol, start.RelativePath)
		}
	}
}

func decideFor(dest string, start wire.Message, opts Options) (Decision, error) {
	if !opts.EnableResume {
		return Decision{StartOffset: 0}, nil
	}
	return DecideResumeForPath(dest, start.Size, start.QuickHash)
}

// streamReader/streamWriter adapt transport.Stream to the io.Reader/
// io.Writer shape wire.ReadMessage/WriteMessage expect, without forcing
// the transport package to know about the wire codec.
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
