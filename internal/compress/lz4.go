// Package compress provides block-mode LZ4 compression that prefixes the
// original size, so the decompressor never needs it supplied out-of-band.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"fileferry/internal/wire"
)

// ErrDecompress is the sentinel for a malformed compressed payload.
var ErrDecompress = errors.New("decompress-error")

// Compress returns data LZ4-compressed with the original length prepended
// as a 4-byte little-endian header.
func Compress(data []byte) []byte {
	bound := lz4.CompressBlockBound(len(data))
	out := make([]byte, 4+bound)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(data)))

	var c lz4.Compressor
	n, err := c.CompressBlock(data, out[4:])
	if err != nil || n == 0 {
		// Incompressible or too small for the block format: store the
		// raw bytes after the size header (Decompress recognizes this
		// case when block decoding fails and the body length equals the
		// declared size, and falls back to a copy).
		out = append(out[:4], data...)
		return out
	}
	return out[:4+n]
}

// Decompress reverses Compress. It validates the declared size against
// MaxPayload-scale sanity before allocating the output buffer.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("compress: %w: payload too short", ErrDecompress)
	}
	originalSize := binary.LittleEndian.Uint32(data[:4])
	body := data[4:]
	if originalSize == 0 {
		return []byte{}, nil
	}
	if originalSize > wire.MaxPayload {
		return nil, fmt.Errorf("compress: %w: declared size %d exceeds maximum", ErrDecompress, originalSize)
	}
	out := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		// Fall back: Compress() may have stored the block raw when
		// compression didn't help.
		if uint32(len(body)) == originalSize {
			copy(out, body)
			return out, nil
		}
		return nil, fmt.Errorf("compress: %w: %v", ErrDecompress, err)
	}
	if uint32(n) != originalSize {
		return nil, fmt.Errorf("compress: %w: size mismatch, got %d want %d", ErrDecompress, n, originalSize)
	}
	return out, nil
}
