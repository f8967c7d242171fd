package receiver

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"fileferry/internal/extract"
)

// channelBufferCapacity is the bounded hand-off between the async
// network loop and the dedicated extraction goroutine. It is the sole
// backpressure mechanism: when the extractor lags, the network loop
// blocks on a channel send rather than buffering unboundedly.
const channelBufferCapacity = 32

// channelReader adapts the receive end of a byte-chunk channel into a
// blocking io.Reader, the exact shape a pull-style decompressor/tar
// walker needs. Read returns (0, io.EOF) once the channel is closed and
// drained, which lets the tar entry iterator complete naturally.
type channelReader struct {
	ch     <-chan []byte
	buf    []byte
	closed bool
}

func newChannelReader(ch <-chan []byte) *channelReader {
	return &channelReader{ch: ch}
}

func (r *channelReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.closed {
			return 0, io.EOF
		}
		chunk, ok := <-r.ch
		if !ok {
			r.closed = true
			return 0, io.EOF
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// extractionOutcome is what the extractor goroutine reports back once
// it finishes, successfully or not (including recovering a panic, per
// spec.md §9 design note (d)).
type extractionOutcome struct {
	result extract.Result
	err    error
}

// startExtractor spawns the dedicated goroutine that drains ch, wraps
// it in the frame decompressor appropriate to archiveType (only
// TarLz4/TarZst are ever passed in — the caller only starts this bridge
// for streamable types), walks the resulting tar stream, and writes
// every entry under saveDir. The returned channel receives exactly one
// outcome when the goroutine finishes.
//
// If the tar stream turns out to be malformed, the goroutine returns an
// error but does not panic the process; if something inside genuinely
// does panic, the deferred recover turns it into an error outcome so
// the network loop (which keeps running independently) is never taken
// down by an extractor failure it didn't cause.
func startExtractor(archiveType extract.ArchiveType, ch <-chan []byte, saveDir string) <-chan extractionOutcome {
	out := make(chan extractionOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- extractionOutcome{err: fmt.Errorf("receiver: extractor panicked: %v", r)}
			}
		}()
		result, err := runExtractor(archiveType, ch, saveDir)
		out <- extractionOutcome{result: result, err: err}
	}()
	return out
}

func runExtractor(archiveType extract.ArchiveType, ch <-chan []byte, saveDir string) (extract.Result, error) {
	cr := newChannelReader(ch)

	var r io.Reader
	switch archiveType {
	case extract.TarLz4:
		r = lz4.NewReader(cr)
	case extract.TarZst:
		dec, err := zstd.NewReader(cr, zstd.WithDecoderMaxWindow(1<<31))
		if err != nil {
			return extract.Result{}, err
		}
		defer dec.Close()
		r = dec.IOReadCloser()
	default:
		return extract.Result{}, fmt.Errorf("receiver: %s is not a streamable archive type", archiveType.Name())
	}

	tr := tar.NewReader(bufio.NewReaderSize(r, 256*1024))
	var result extract.Result
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if isBenignStreamEnd(err) {
			// A zstd/lz4 stream that ends exactly on a tar block
			// boundary can surface as an unexpected-EOF from the tar
			// reader rather than a clean io.EOF; the original treats
			// this as "the archive is done", not a failure.
			break
		}
		if err != nil {
			return result, fmt.Errorf("receiver: malformed archive: %w", err)
		}

		dest, err := SafeJoin(saveDir, hdr.Name)
		if err != nil {
			return result, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return result, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return result, err
			}
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return result, err
			}
			n, copyErr := io.Copy(f, tr)
			f.Close()
			if copyErr != nil {
				return result, copyErr
			}
			result.FilesCount++
			result.TotalSize += uint64(n)
		}
	}
	return result, nil
}

func isBenignStreamEnd(err error) bool {
	return err == io.ErrUnexpectedEOF
}
