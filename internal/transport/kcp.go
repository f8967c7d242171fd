package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
)

// kcp-go's UDPSession already satisfies net.Conn-shaped Read/Write, so
// the wrapper only needs to adapt the ReadExact/WriteAll/Flush/Shutdown
// vocabulary this engine's Stream interface expects.
type kcpStream struct {
	sess *kcp.UDPSession
}

func newKCPStream(sess *kcp.UDPSession) *kcpStream {
	configureSession(sess)
	return &kcpStream{sess: sess}
}

// configureSession applies the engine's "fastest" low-latency profile:
// nodelay mode, 1400 MTU, and a generous window for high throughput.
func configureSession(sess *kcp.UDPSession) {
	sess.SetNoDelay(1, 10, 2, 1) // nodelay=1, interval=10ms, resend=2, no congestion control
	sess.SetMtu(1400)
	sess.SetWindowSize(1024, 1024)
	sess.SetStreamMode(true)
}

func (s *kcpStream) Read(buf []byte) (int, error) { return s.sess.Read(buf) }

func (s *kcpStream) ReadExact(buf []byte) error {
	_, err := io.ReadFull(s.sess, buf)
	return err
}

func (s *kcpStream) WriteAll(buf []byte) error {
	_, err := s.sess.Write(buf)
	return err
}

func (s *kcpStream) Flush() error { return nil }

func (s *kcpStream) Shutdown() error { return s.sess.Close() }

type kcpListener struct {
	ln *kcp.Listener
}

func (l *kcpListener) Accept(ctx context.Context) (Stream, string, error) {
	return l.AcceptTimeout(ctx, 0)
}

func (l *kcpListener) AcceptTimeout(ctx context.Context, d time.Duration) (Stream, string, error) {
	deadline := time.Time{}
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := l.ln.SetDeadline(deadline); err != nil {
		return nil, "", err
	}
	sess, err := l.ln.AcceptKCP()
	if err != nil {
		if d > 0 && isTimeoutErr(err) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return newKCPStream(sess), sess.RemoteAddr().String(), nil
}

func (l *kcpListener) Close() error { return l.ln.Close() }

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

type kcpDialer struct{}

func NewKCP() Dialer { return kcpDialer{} }

func (kcpDialer) Connect(ctx context.Context, addr string) (Stream, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("transport: kcp dial: %w", err)
	}
	return newKCPStream(sess), nil
}

func (kcpDialer) Bind(port int) (Listener, error) {
	ln, err := kcp.ListenWithOptions(fmt.Sprintf(":%d", port), nil, 10, 3)
	if err != nil {
		return nil, fmt.Errorf("transport: kcp listen: %w", err)
	}
	return &kcpListener{ln: ln}, nil
}
