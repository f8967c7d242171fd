package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteMessage writes one framed message to w: a 4-byte little-endian
// length header followed by the tagged payload.
func WriteMessage(w io.Writer, m Message) error {
	frame, err := EncodeFrame(m)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadMessage reads one framed message from r, rejecting a declared
// length beyond MaxPayload before allocating anything.
func ReadMessage(r io.Reader) (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxPayload {
		return Message{}, fmt.Errorf("wire: %w: frame length %d exceeds maximum", ErrDecode, length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, err
	}
	return Decode(body)
}
