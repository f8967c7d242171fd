package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrDecode is the sentinel for malformed framing or encoding.
var ErrDecode = errors.New("decode-error")

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	return appendUint64(buf, math.Float64bits(v))
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendBytes(buf, v []byte) []byte {
	buf = appendUint64(buf, uint64(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func takeUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrDecode
	}
	return binary.LittleEndian.Uint64(b[:8]), b[8:], nil
}

func takeFloat64(b []byte) (float64, []byte, error) {
	v, rest, err := takeUint64(b)
	if err != nil {
		return 0, nil, err
	}
	return math.Float64frombits(v), rest, nil
}

func takeBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, nil, ErrDecode
	}
	return b[0] != 0, b[1:], nil
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeUint64(b)
	if err != nil {
		return nil, nil, err
	}
	if n > MaxPayload || uint64(len(rest)) < n {
		return nil, nil, ErrDecode
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

func takeString(b []byte) (string, []byte, error) {
	v, rest, err := takeBytes(b)
	if err != nil {
		return "", nil, err
	}
	return string(v), rest, nil
}
