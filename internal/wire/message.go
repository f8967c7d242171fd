// Package wire implements the engine's tagged message codec: a 4-byte
// little-endian length prefix followed by a compact tagged binary
// encoding of exactly one message.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Tag identifies the concrete message type carried in a frame.
type Tag byte

const (
	TagFileStart Tag = iota + 1
	TagFileChunk
	TagFileEnd
	TagAck
	TagResumeAck
	TagCancel
	TagDone
	TagError
	TagSpeedTestRequest
	TagSpeedTestReady
	TagSpeedTestData
	TagSpeedTestEnd
	TagSpeedTestResult
)

// MaxPayload is the largest tagged payload (post length-prefix) the
// decoder accepts. Chunks run to several hundred KiB; this ceiling
// exists purely to stop a hostile or corrupt peer from asking us to
// allocate unbounded memory.
const MaxPayload = 16 * 1024 * 1024

// Message is the tagged union of every wire message. Exactly one of the
// typed fields is meaningful for a given Tag; callers switch on Tag.
type Message struct {
	Tag Tag

	// FileStart
	RelativePath string
	Size         uint64
	Compressed   bool
	OffsetHint   uint64
	QuickHash    uint64

	// FileChunk
	Payload      []byte
	OriginalSize uint64

	// ResumeAck
	Offset uint64

	// Error
	Text string

	// SpeedTestRequest / SpeedTestData
	SpeedSize uint64
	Data      []byte

	// SpeedTestResult
	UploadMBps   float64
	DownloadMBps float64
	RTTMillis    float64
}

func FileStart(relativePath string, size uint64, compressed bool, offsetHint, quickHash uint64) Message {
	return Message{Tag: TagFileStart, RelativePath: relativePath, Size: size, Compressed: compressed, OffsetHint: offsetHint, QuickHash: quickHash}
}

func FileChunk(payload []byte, originalSize uint64) Message {
	return Message{Tag: TagFileChunk, Payload: payload, OriginalSize: originalSize}
}

func FileEnd() Message { return Message{Tag: TagFileEnd} }
func Ack() Message     { return Message{Tag: TagAck} }
func ResumeAck(offset uint64) Message {
	return Message{Tag: TagResumeAck, Offset: offset}
}
func Cancel() Message { return Message{Tag: TagCancel} }
func Done() Message   { return Message{Tag: TagDone} }
func Error(text string) Message {
	return Message{Tag: TagError, Text: text}
}
func SpeedTestRequest(size uint64) Message {
	return Message{Tag: TagSpeedTestRequest, SpeedSize: size}
}
func SpeedTestReady() Message { return Message{Tag: TagSpeedTestReady} }
func SpeedTestData(data []byte) Message {
	return Message{Tag: TagSpeedTestData, Data: data}
}
func SpeedTestEnd() Message { return Message{Tag: TagSpeedTestEnd} }
func SpeedTestResult(upload, download, rtt float64) Message {
	return Message{Tag: TagSpeedTestResult, UploadMBps: upload, DownloadMBps: download, RTTMillis: rtt}
}

// Encode serializes a message's tagged payload (without the length
// prefix). Use EncodeFrame to get a ready-to-write frame.
func Encode(m Message) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(m.Tag))

	switch m.Tag {
	case TagFileStart:
		buf = appendString(buf, m.RelativePath)
		buf = appendUint64(buf, m.Size)
		buf = appendBool(buf, m.Compressed)
		buf = appendUint64(buf, m.OffsetHint)
		buf = appendUint64(buf, m.QuickHash)
	case TagFileChunk:
		buf = appendUint64(buf, m.OriginalSize)
		buf = appendBytes(buf, m.Payload)
	case TagFileEnd, TagAck, TagCancel, TagDone, TagSpeedTestReady, TagSpeedTestEnd:
		// tag only, no body
	case TagResumeAck:
		buf = appendUint64(buf, m.Offset)
	case TagError:
		buf = appendString(buf, m.Text)
	case TagSpeedTestRequest:
		buf = appendUint64(buf, m.SpeedSize)
	case TagSpeedTestData:
		buf = appendBytes(buf, m.Data)
	case TagSpeedTestResult:
		buf = appendFloat64(buf, m.UploadMBps)
		buf = appendFloat64(buf, m.DownloadMBps)
		buf = appendFloat64(buf, m.RTTMillis)
	default:
		return nil, fmt.Errorf("wire: unknown tag %d", m.Tag)
	}
	return buf, nil
}

// EncodeFrame prepends the 4-byte little-endian length header.
func EncodeFrame(m Message) ([]byte, error) {
	body, err := Encode(m)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	return frame, nil
}

// Decode parses a tagged payload (the bytes after the length header).
func Decode(body []byte) (Message, error) {
	if len(body) < 1 {
		return Message{}, fmt.Errorf("wire: %w: empty payload", ErrDecode)
	}
	tag := Tag(body[0])
	rest := body[1:]
	m := Message{Tag: tag}

	var err error
	switch tag {
	case TagFileStart:
		if m.RelativePath, rest, err = takeString(rest); err != nil {
			return Message{}, err
		}
		if m.Size, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
		if m.Compressed, rest, err = takeBool(rest); err != nil {
			return Message{}, err
		}
		if m.OffsetHint, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
		if m.QuickHash, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
	case TagFileChunk:
		if m.OriginalSize, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
		if m.Payload, rest, err = takeBytes(rest); err != nil {
			return Message{}, err
		}
	case TagFileEnd, TagAck, TagCancel, TagDone, TagSpeedTestReady, TagSpeedTestEnd:
		// nothing to decode
	case TagResumeAck:
		if m.Offset, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
	case TagError:
		if m.Text, rest, err = takeString(rest); err != nil {
			return Message{}, err
		}
	case TagSpeedTestRequest:
		if m.SpeedSize, rest, err = takeUint64(rest); err != nil {
			return Message{}, err
		}
	case TagSpeedTestData:
		if m.Data, rest, err = takeBytes(rest); err != nil {
			return Message{}, err
		}
	case TagSpeedTestResult:
		if m.UploadMBps, rest, err = takeFloat64(rest); err != nil {
			return Message{}, err
		}
		if m.DownloadMBps, rest, err = takeFloat64(rest); err != nil {
			return Message{}, err
		}
		if m.RTTMillis, rest, err = takeFloat64(rest); err != nil {
			return Message{}, err
		}
	default:
		return Message{}, fmt.Errorf("wire: %w: unknown tag %d", ErrDecode, tag)
	}
	if len(rest) != 0 {
		return Message{}, fmt.Errorf("wire: %w: trailing bytes", ErrDecode)
	}
	return m, nil
}
