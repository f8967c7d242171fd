package receiver

import (
	"fmt"
	"os"
	"time"

	"fileferry/internal/compress"
	"fileferry/internal/engine"
	"fileferry/internal/extract"
	"fileferry/internal/stats"
	"fileferry/internal/transport"
	"fileferry/internal/wire"
)

// receiveAndExtractStreaming implements the bridge described in
// spec.md §4.8: a bounded channel hands decompressed-or-raw chunk
// bytes to a dedicated goroutine that decompresses (frame-level) and
// walks the tar stream as it arrives, writing entries to disk without
// ever buffering the whole archive.
//
// Streaming extraction and resume-from-disk are mutually exclusive for
// one file (spec.md §4.8): resume is only honored here when the sender
// is resuming a partially-saved raw archive on disk, in which case the
// streaming path is skipped entirely and the archive is extracted
// synchronously after file-end instead.
func receiveAndExtractStreaming(stream transport.Stream, peerAddr, dest string, start wire.Message, archiveType extract.ArchiveType, opts Options, sink engine.Sink, stop *engine.StopToken) error {
	var resumeOffset uint64
	if opts.SaveArchiveForResume && opts.EnableResume {
		if info, err := os.Stat(dest); err == nil && uint64(info.Size()) < start.Size {
			resumeOffset = uint64(info.Size())
		}
	}

	var rawFile *os.File
	var err error
	if opts.SaveArchiveForResume {
		if resumeOffset > 0 {
			rawFile, err = os.OpenFile(dest, os.O_WRONLY, 0o644)
			if err == nil {
				_, err = rawFile.Seek(int64(resumeOffset), 0)
			}
		} else {
			rawFile, err = os.Create(dest)
		}
		if err != nil {
			return fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
		}
		defer rawFile.Close()
	}

	if resumeOffset > 0 {
		if err := wire.WriteMessage(streamWriter{stream}, wire.ResumeAck(resumeOffset)); err != nil {
			return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}
	} else {
		if err := wire.WriteMessage(streamWriter{stream}, wire.Ack()); err != nil {
			return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}
	}

	// Streaming extraction only ever runs from a cold start; a resume
	// falls back to "write raw, extract synchronously after file-end".
	streamingExtract := resumeOffset == 0

	var chunkCh chan []byte
	var outcome <-chan extractionOutcome
	if streamingExtract {
		chunkCh = make(chan []byte, channelBufferCapacity)
		outcome = startExtractor(archiveType, chunkCh, opts.SaveDir)
	}

	received := resumeOffset
	tr := stats.NewTransfer(start.Size, 1)
	lastEmit := time.Time{}
	extractorDead := false

	closeChunkCh := func() {
		if chunkCh != nil {
			close(chunkCh)
			chunkCh = nil
		}
	}

	for {
		if stop.Stopped() {
			if rawFile != nil {
				rawFile.Sync()
			}
			closeChunkCh()
			if outcome != nil {
				<-outcome
			}
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventCancelled, Target: peerAddr, File: start.RelativePath, Transferred: received, Reason: "stopped by user"})
			return fmt.Errorf("receiver: %w", engine.ErrCancelled)
		}

		msg, err := wire.ReadMessage(streamReader{stream})
		if err != nil {
			if rawFile != nil {
				rawFile.Sync()
			}
			closeChunkCh()
			if outcome != nil {
				<-outcome
			}
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileReceived, Target: peerAddr, File: start.RelativePath, Transferred: received, Reason: "connection interrupted"})
			return fmt.Errorf("receiver: %w: %v", engine.ErrTransport, err)
		}

		switch msg.Tag {
		case wire.TagFileChunk:
			if stop.Stopped() {
				continue
			}
			data := msg.Payload
			if start.Compressed {
				data, err = compress.Decompress(data)
				if err != nil {
					return fmt.Errorf("receiver: %w: %v", engine.ErrDecompress, err)
				}
			}
			if rawFile != nil {
				if _, err := rawFile.Write(data); err != nil {
					return fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
				}
			}
			received += uint64(len(data))
			tr.Update(uint64(len(data)), msg.OriginalSize, uint64(len(msg.Payload)))
			if time.Since(lastEmit) >= time.Second {
				lastEmit = time.Now()
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventProgress, Target: peerAddr, File: start.RelativePath, Transferred: received, TotalBytes: start.Size})
			}

			if streamingExtract && chunkCh != nil && !extractorDead {
				sendLoop:
				for {
					select {
					case chunkCh <- data:
						break sendLoop
					case r := <-outcome:
						// Extractor exited early (malformed archive):
						// downgrade to archive-invalid telemetry and keep
						// draining the network so a follow-up file/Done
						// stays in sync, rather than spinning forever on
						// a full channel nobody is reading any more.
						extractorDead = true
						chunkCh = nil
						outcome = nil
						engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionError, Target: peerAddr, File: start.RelativePath, Reason: archiveInvalidReason(r.err)})
						break sendLoop
					case <-time.After(20 * time.Millisecond):
						if stop.Stopped() {
							break sendLoop
						}
					}
				}
			}

		case wire.TagFileEnd:
			if rawFile != nil {
				if err := rawFile.Sync(); err != nil {
					return fmt.Errorf("receiver: %w: %v", engine.ErrIO, err)
				}
			}
			engine.Emit(sink, stop, engine.Event{Kind: engine.EventProgress, Target: peerAddr, File: start.RelativePath, Transferred: received, TotalBytes: start.Size})

			if streamingExtract && !extractorDead {
				closeChunkCh()
				result := <-outcome
				if result.err != nil {
					engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionError, Target: peerAddr, File: start.RelativePath, Reason: result.err.Error()})
				} else {
					if rawFile != nil {
						rawFile.Close()
						_ = os.Remove(dest)
					}
					engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionCompleted, Target: peerAddr, File: start.RelativePath, FilesCount: result.result.FilesCount, TotalBytes: result.result.TotalSize})
				}
			} else if !streamingExtract && opts.SaveArchiveForResume {
				engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionStarted, Target: peerAddr, File: start.RelativePath})
				result, err := extract.Archive(dest, opts.SaveDir)
				if err != nil {
					engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionError, Target: peerAddr, File: start.RelativePath, Reason: err.Error()})
				} else {
					_ = os.Remove(dest)
					engine.Emit(sink, stop, engine.Event{Kind: engine.EventExtractionCompleted, Target: peerAddr, File: start.RelativePath, FilesCount: result.FilesCount, TotalBytes: result.TotalSize})
				}
			}

			engine.Emit(sink, stop, engine.Event{Kind: engine.EventFileReceived, Target: peerAddr, File: start.RelativePath, Transferred: received, TotalBytes: start.Size})
			return wire.WriteMessage(streamWriter{stream}, wire.Ack())

		default:
			return fmt.Errorf("receiver: %w: unexpected message during archive receive", engine.ErrProtocol)
		}
	}
}

func archiveInvalidReason(err error) string {
	if err == nil {
		return "archive-invalid"
	}
	return err.Error()
}
