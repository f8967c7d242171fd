package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"

	"fileferry/internal/certutil"
)

// quicStream wraps a single bidirectional QUIC stream, which is all one
// logical "connection" needs for this protocol (no multiplexing).
type quicStream struct {
	conn   quic.Connection
	stream quic.Stream
}

func (s *quicStream) Read(buf []byte) (int, error) { return s.stream.Read(buf) }

func (s *quicStream) ReadExact(buf []byte) error {
	_, err := io.ReadFull(s.stream, buf)
	return err
}

func (s *quicStream) WriteAll(buf []byte) error {
	_, err := s.stream.Write(buf)
	return err
}

func (s *quicStream) Flush() error { return nil } // QUIC streams have no separate flush step

// Shutdown finishes the send half, matching the spec's "shutdown
// finishes the send half" requirement without tearing down the whole
// connection (the peer may still be writing its own reply).
func (s *quicStream) Shutdown() error {
	return s.stream.Close()
}

type quicListener struct {
	ln *quic.Listener
}

func (l *quicListener) Accept(ctx context.Context) (Stream, string, error) {
	return l.AcceptTimeout(ctx, 0)
}

func (l *quicListener) AcceptTimeout(ctx context.Context, d time.Duration) (Stream, string, error) {
	acceptCtx := ctx
	var cancel context.CancelFunc
	if d > 0 {
		acceptCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	conn, err := l.ln.Accept(acceptCtx)
	if err != nil {
		if d > 0 && acceptCtx.Err() != nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, "", err
	}
	return &quicStream{conn: conn, stream: stream}, conn.RemoteAddr().String(), nil
}

func (l *quicListener) Close() error { return l.ln.Close() }

type quicDialer struct{}

func NewQUIC() Dialer { return quicDialer{} }

func (quicDialer) Connect(ctx context.Context, addr string) (Stream, error) {
	// Certificate verification is intentionally disabled: this engine
	// targets LAN transfers where the self-signed cert minted on bind
	// cannot be validated against any CA. See DESIGN.md open question (b).
	tlsConfig := certutil.InsecureClientTLSConfig()
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: quic dial: %w", err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: quic open stream: %w", err)
	}
	return &quicStream{conn: conn, stream: stream}, nil
}

func (quicDialer) Bind(port int) (Listener, error) {
	tlsConfig, err := certutil.SelfSignedServerTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("transport: generating self-signed cert: %w", err)
	}
	ln, err := quic.ListenAddr(fmt.Sprintf(":%d", port), tlsConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: quic listen: %w", err)
	}
	return &quicListener{ln: ln}, nil
}
