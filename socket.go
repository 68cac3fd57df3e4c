package ftp

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"syscall"
)

// socket is the single capability the rest of the client programs against,
// regardless of whether the underlying transport is plain TCP or TLS over
// TCP. Two variants implement it: plainSocket and tlsSocket. A plainSocket
// can be detached and re-wrapped as a tlsSocket in place (AUTH TLS) without
// ever reconnecting — that is the whole point of keeping this as an
// interface instead of a concrete *net.Conn field on Client.
type socket interface {
	connect(network, addr string) error
	isConnected() bool

	write(p []byte) error
	readSome(p []byte) (int, error)

	// readLine reads through the first bare '\n' or bare '\r' (collapsing a
	// CRLF pair into one terminator), returning the bytes consumed
	// including the terminator. A surplus past the terminator is buffered
	// internally and returned on the next call before any new network
	// read is attempted.
	readLine() (line []byte, err error)

	shutdown() error
	close() error

	localAddr() net.Addr
	remoteAddr() net.Addr

	// detach returns the underlying net.Conn and its buffered reader,
	// leaving the socket unusable. Used to re-wrap a plainSocket as a
	// tlsSocket without reconnecting (Logout goes the other way through
	// tls.Conn.NetConn instead).
	detach() (net.Conn, *bufio.Reader)
}

// tlsCapable is implemented only by tlsSocket; control.go and data.go type-
// assert against it rather than growing the socket interface with methods
// that plainSocket can't meaningfully implement.
type tlsCapable interface {
	tlsHandshake() error
	tlsShutdown() error
}

// plainSocket wraps a bare TCP connection.
type plainSocket struct {
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

func newPlainSocket() *plainSocket {
	return &plainSocket{}
}

// wrapPlainSocket builds a plainSocket around a conn that's already
// connected (e.g. returned by detach(), or accepted on a data listener).
func wrapPlainSocket(conn net.Conn, reader *bufio.Reader) *plainSocket {
	if reader == nil {
		reader = bufio.NewReader(conn)
	}
	return &plainSocket{conn: conn, reader: reader, connected: true}
}

func (s *plainSocket) connect(network, addr string) error {
	conn, err := net.Dial(network, addr)
	if err != nil {
		// Per spec 4.1: after a failed connect, the socket is returned to
		// the closed state before the error surfaces. net.Dial never
		// leaves a half-open socket behind on failure, so there is
		// nothing further to close here.
		return err
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.connected = true
	return nil
}

func (s *plainSocket) isConnected() bool {
	return s.connected
}

func (s *plainSocket) write(p []byte) error {
	_, err := s.conn.Write(p)
	return err
}

func (s *plainSocket) readSome(p []byte) (int, error) {
	return s.conn.Read(p)
}

func (s *plainSocket) readLine() ([]byte, error) {
	return readLineFrom(s.reader)
}

func (s *plainSocket) shutdown() error {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		err := tc.CloseWrite()
		if isTolerableShutdownError(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *plainSocket) close() error {
	s.connected = false
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *plainSocket) localAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *plainSocket) remoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

func (s *plainSocket) detach() (net.Conn, *bufio.Reader) {
	conn, reader := s.conn, s.reader
	s.conn, s.reader, s.connected = nil, nil, false
	return conn, reader
}

// tlsSocket wraps a *tls.Conn. It is built either by dialing fresh (data
// connections that are TLS from the start aren't a thing in this client —
// every TLS data connection starts from an already-accepted/connected plain
// conn) or, far more commonly, by wrapping a detached plain socket in place.
type tlsSocket struct {
	conn      *tls.Conn
	reader    *bufio.Reader
	config    *tls.Config
	connected bool
}

// wrapTLSSocket upgrades an already-connected plain net.Conn to TLS without
// reconsulting the network. config is cloned (tls.Config.Clone keeps the
// same ClientSessionCache instance, only copying the value struct around
// it), so every socket wrapTLSSocket produces from the same config —
// control or data — consults and populates the identical cache. That
// sharing is what lets a data connection's handshake resume the control
// connection's session (spec §4.3/§9); WithTLSConfig is what guarantees
// config carries a cache in the first place.
func wrapTLSSocket(conn net.Conn, config *tls.Config) *tlsSocket {
	cfg := config.Clone()
	return &tlsSocket{
		conn:      tls.Client(conn, cfg),
		config:    cfg,
		connected: true,
	}
}

func (s *tlsSocket) connect(network, addr string) error {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return err
	}
	s.conn = tls.Client(conn, s.config)
	s.connected = true
	return nil
}

func (s *tlsSocket) isConnected() bool {
	return s.connected
}

func (s *tlsSocket) write(p []byte) error {
	_, err := s.conn.Write(p)
	return err
}

func (s *tlsSocket) readSome(p []byte) (int, error) {
	return s.conn.Read(p)
}

func (s *tlsSocket) readLine() ([]byte, error) {
	if s.reader == nil {
		s.reader = bufio.NewReader(s.conn)
	}
	return readLineFrom(s.reader)
}

// tlsHandshake performs the client-side handshake. config.ClientSessionCache
// (see wrapTLSSocket) is consulted automatically by tls.Conn during
// Handshake; a cache hit is a resumed session, a miss is a full handshake
// that also populates the cache for whoever shares it next.
func (s *tlsSocket) tlsHandshake() error {
	return s.conn.Handshake()
}

// tlsShutdown sends the TLS close_notify and closes the connection. EOF is
// tolerated per spec 4.1 ("bidirectional SSL shutdown commonly races"), as
// is a connection that is already closed.
func (s *tlsSocket) tlsShutdown() error {
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *tlsSocket) shutdown() error {
	return s.tlsShutdown()
}

func (s *tlsSocket) close() error {
	s.connected = false
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *tlsSocket) localAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *tlsSocket) remoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

func (s *tlsSocket) detach() (net.Conn, *bufio.Reader) {
	conn, reader := s.conn, s.reader
	s.conn, s.reader, s.connected = nil, nil, false
	if conn == nil {
		return nil, reader
	}
	return conn, reader
}

// isTolerableShutdownError reports whether err is the "peer already closed"
// condition spec 4.1 says shutdown(both) must swallow.
func isTolerableShutdownError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ENOTCONN) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// readLineFrom implements the read_line contract shared by both socket
// variants: read through the first bare '\n' or bare '\r', collapsing a
// CRLF pair into a single terminator, and return the consumed bytes
// including the terminator. The bufio.Reader is the growable accumulator
// spec 4.2 describes — bytes past the terminator stay buffered for the next
// call instead of being discarded.
func readLineFrom(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(line) > 0 {
				return line, nil
			}
			return nil, err
		}
		if b == '\n' {
			line = append(line, b)
			return line, nil
		}
		if b == '\r' {
			line = append(line, b)
			next, err := r.Peek(1)
			if err == nil && len(next) == 1 && next[0] == '\n' {
				nl, _ := r.ReadByte()
				line = append(line, nl)
			}
			return line, nil
		}
		line = append(line, b)
	}
}
