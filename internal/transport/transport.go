// Package transport provides one abstract connection-oriented stream
// type over four concrete transports — TCP, QUIC, KCP (reliable UDP),
// and raw UDP. The rest of the engine is written exclusively against
// the Stream and Listener interfaces; it never imports a transport's
// concrete package directly.
package transport

import (
	"context"
	"fmt"
	"time"
)

// Kind names one of the four supported transports.
type Kind string

const (
	TCP  Kind = "tcp"
	QUIC Kind = "quic"
	KCP  Kind = "kcp"
	UDP  Kind = "udp"
)

// All lists every transport kind the engine knows about, in the order
// a CLI --transport flag's help text should present them.
func All() []Kind { return []Kind{TCP, QUIC, KCP, UDP} }

// ParseKind maps a lowercase name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case TCP, QUIC, KCP, UDP:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("transport: unknown kind %q", s)
	}
}

// Stream is a connection-oriented, ordered, reliable byte stream. Every
// transport implementation wraps its native connection type to satisfy
// this single interface.
type Stream interface {
	Read(buf []byte) (int, error)
	ReadExact(buf []byte) error
	WriteAll(buf []byte) error
	Flush() error
	Shutdown() error
}

// Listener accepts incoming connections, with a timed variant so the
// outer server loop can poll a stop token between attempts.
type Listener interface {
	Accept(ctx context.Context) (Stream, string, error)

	// AcceptTimeout waits up to d for a connection. A nil Stream with a
	// nil error means "no connection within the slice" — the expected,
	// non-error outcome the outer loop uses to re-check its stop token.
	AcceptTimeout(ctx context.Context, d time.Duration) (Stream, string, error)
	Close() error
}

// Dialer connects to a remote endpoint and binds a local listener for a
// given transport kind.
type Dialer interface {
	Connect(ctx context.Context, addr string) (Stream, error)
	Bind(port int) (Listener, error)
}

// New returns the Dialer for the requested transport kind.
func New(kind Kind) (Dialer, error) {
	switch kind {
	case TCP:
		return NewTCP(), nil
	case QUIC:
		return NewQUIC(), nil
	case KCP:
		return NewKCP(), nil
	case UDP:
		return NewUDP(), nil
	default:
		return nil, fmt.Errorf("transport: unknown kind %q", kind)
	}
}
