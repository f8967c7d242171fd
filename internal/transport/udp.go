package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"
)

// udpDatagramSize is the largest UDP datagram this engine will read in
// one Read() call.
const udpDatagramSize = 65507

// udpStream frames raw datagrams and exposes them as if they were a
// stream. Per spec §4.3/§9(c) this transport is diagnostic-only: it
// cannot guarantee delivery or ordering across a real network, and its
// Bind/Connect log a prominent warning rather than omitting it
// silently.
type udpStream struct {
	conn *net.UDPConn
	peer *net.UDPAddr

	recvBuf []byte
	pos     int
	n       int
}

func newUDPStream(conn *net.UDPConn, peer *net.UDPAddr) *udpStream {
	return &udpStream{conn: conn, peer: peer, recvBuf: make([]byte, udpDatagramSize)}
}

func (s *udpStream) Read(buf []byte) (int, error) {
	if s.pos >= s.n {
		n, _, err := s.conn.ReadFromUDP(s.recvBuf)
		if err != nil {
			return 0, err
		}
		s.n = n
		s.pos = 0
	}
	copied := copy(buf, s.recvBuf[s.pos:s.n])
	s.pos += copied
	return copied, nil
}

func (s *udpStream) ReadExact(buf []byte) error {
	_, err := io.ReadFull(s, buf)
	return err
}

func (s *udpStream) WriteAll(buf []byte) error {
	if s.peer != nil {
		_, err := s.conn.WriteToUDP(buf, s.peer)
		return err
	}
	_, err := s.conn.Write(buf)
	return err
}

func (s *udpStream) Flush() error    { return nil }
func (s *udpStream) Shutdown() error { return s.conn.Close() }

type udpListener struct {
	conn *net.UDPConn
}

func (l *udpListener) Accept(ctx context.Context) (Stream, string, error) {
	return l.AcceptTimeout(ctx, 0)
}

// AcceptTimeout for UDP has no real connection setup — it treats the
// first datagram from any peer as "the connection", consistent with
// this transport's documented unreliability.
func (l *udpListener) AcceptTimeout(ctx context.Context, d time.Duration) (Stream, string, error) {
	if d > 0 {
		l.conn.SetReadDeadline(time.Now().Add(d))
	} else {
		l.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, udpDatagramSize)
	n, addr, err := l.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, "", nil
		}
		return nil, "", err
	}
	stream := newUDPStream(l.conn, addr)
	stream.recvBuf = buf
	stream.n = n
	return stream, addr.String(), nil
}

func (l *udpListener) Close() error { return l.conn.Close() }

type udpDialer struct{}

func NewUDP() Dialer { return udpDialer{} }

func (udpDialer) Connect(ctx context.Context, addr string) (Stream, error) {
	log.Printf("warning: UDP transport does not guarantee delivery or ordering; use only for diagnostics")
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return newUDPStream(conn, nil), nil
}

func (udpDialer) Bind(port int) (Listener, error) {
	log.Printf("warning: UDP transport does not guarantee delivery or ordering; use only for diagnostics")
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("transport: udp listen: %w", err)
	}
	return &udpListener{conn: conn}, nil
}
