package ftp

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// TransferCallback lets a caller observe and cooperatively cancel a
// transfer in progress. is_cancelled() is polled after every 8KiB block;
// the default (nil) callback never cancels.
type TransferCallback interface {
	Begin()
	Notify(n int)
	End()
	IsCancelled() bool
}

const dataBlockSize = 8192

// dataConn is a one-shot bulk byte pipe, opened per transfer and never
// reused. In passive mode sock is ready as soon as the connect succeeds; in
// active mode the listener is held until accept() is called in step 3 of
// the data-command flow (after the main command's preliminary reply).
type dataConn struct {
	sock     socket
	listener net.Listener
}

// openPassiveDataConn implements spec 4.3's passive open: send EPSV (RFC
// 2428) or PASV, parse the advertised endpoint, and connect a fresh TCP
// socket to it. For EPSV the host IP is inherited from the control
// connection's remote endpoint, since the reply carries only a port.
func openPassiveDataConn(ctrl *controlConn, remoteIP net.IP, useEPSV bool) (*dataConn, Reply, error) {
	cmd := "PASV"
	if useEPSV {
		cmd = "EPSV"
	}
	if err := ctrl.sendCommand(cmd); err != nil {
		return nil, Reply{}, err
	}
	reply, err := ctrl.readReply()
	if err != nil {
		return nil, Reply{}, err
	}
	if !reply.IsPositive() {
		return nil, reply, nil
	}

	var ip net.IP
	var port int
	if useEPSV {
		port, err = parseEPSVReply(reply.Text)
		ip = remoteIP
	} else {
		ip, port, err = parsePASVReply(reply.Text)
	}
	if err != nil {
		return nil, reply, err
	}

	sock := newPlainSocket()
	if err := sock.connect("tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port))); err != nil {
		return nil, reply, err
	}
	return &dataConn{sock: sock}, reply, nil
}

// openActiveDataConn implements spec 4.3's active open: bind a listener on
// the control connection's local address with an OS-assigned port, then
// send PORT or EPRT describing it. The listen backlog is the operating
// system's default, not 1; accept() takes one connection and closes the
// listener. The listener is kept open until then; accept() is called
// later, after the main command's preliminary reply (step 3 of the
// data-command flow).
func openActiveDataConn(ctrl *controlConn, localIP net.IP, useEPRT bool) (*dataConn, Reply, error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: localIP, Port: 0})
	if err != nil {
		return nil, Reply{}, err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	cmd := formatPORT(localIP, port)
	if useEPRT {
		cmd = formatEPRT(localIP, port)
	}
	if err := ctrl.sendCommand(cmd); err != nil {
		ln.Close()
		return nil, Reply{}, err
	}
	reply, err := ctrl.readReply()
	if err != nil {
		ln.Close()
		return nil, Reply{}, err
	}
	if !reply.IsPositive() {
		ln.Close()
		return nil, reply, nil
	}
	return &dataConn{listener: ln}, reply, nil
}

// accept blocks for the single incoming connection active mode expects,
// then closes the listener — a data connection is never reused.
func (d *dataConn) accept() error {
	conn, err := d.listener.Accept()
	d.listener.Close()
	d.listener = nil
	if err != nil {
		return err
	}
	d.sock = wrapPlainSocket(conn, nil)
	return nil
}

// overlayTLS wraps the already-connected/accepted plain socket in TLS.
// config is the client's shared TLS config (WithTLSConfig, carried on
// Client.tlsConfig) — wrapTLSSocket clones it, so this handshake consults
// the same ClientSessionCache the control connection's handshake already
// populated, attempting resumption rather than a cold handshake.
func (d *dataConn) overlayTLS(config *tls.Config) error {
	conn, _ := d.sock.detach()
	tlsSock := wrapTLSSocket(conn, config)
	d.sock = tlsSock
	return tlsSock.tlsHandshake()
}

// send implements spec 4.3's send(stream, cb): if cb is already cancelled,
// return without transferring anything; otherwise stream up to 8192 bytes
// at a time from stream to the socket, notifying and checking for
// cancellation after each block.
func (d *dataConn) send(stream io.Reader, cb TransferCallback) error {
	if cb != nil && cb.IsCancelled() {
		return nil
	}
	if cb != nil {
		cb.Begin()
		defer cb.End()
	}
	buf := make([]byte, dataBlockSize)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if err := d.sock.write(buf[:n]); err != nil {
				return err
			}
			if cb != nil {
				cb.Notify(n)
				if cb.IsCancelled() {
					return nil
				}
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// recv implements spec 4.3's recv(stream, cb): read_some into an 8192-byte
// buffer from the socket, write to stream, notify; EOF terminates the loop
// and stream.Flush() (if stream implements it) is called before End().
func (d *dataConn) recv(stream io.Writer, cb TransferCallback) error {
	if cb != nil {
		cb.Begin()
		defer cb.End()
	}
	buf := make([]byte, dataBlockSize)
	for {
		n, rerr := d.sock.readSome(buf)
		if n > 0 {
			if _, werr := stream.Write(buf[:n]); werr != nil {
				return werr
			}
			if cb != nil {
				cb.Notify(n)
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return rerr
		}
		if cb != nil && cb.IsCancelled() {
			break
		}
	}
	if flusher, ok := stream.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// closeGraceful performs the non-cancelled teardown: TLS shutdown if TLS,
// else shutdown(both) tolerating not_connected/eof, then close the socket
// and any still-open acceptor.
func (d *dataConn) closeGraceful() error {
	if d.listener != nil {
		d.listener.Close()
		d.listener = nil
	}
	if d.sock == nil {
		return nil
	}
	_ = d.sock.shutdown()
	return d.sock.close()
}

// closeAbortive skips the shutdown handshake entirely — used after a
// cancelled transfer so no final state is exchanged with the peer.
func (d *dataConn) closeAbortive() error {
	if d.listener != nil {
		d.listener.Close()
		d.listener = nil
	}
	if d.sock == nil {
		return nil
	}
	return d.sock.close()
}

// parsePASVReply locates the outermost parenthesized payload in a 227 reply
// and splits the h1,h2,h3,h4,p1,p2 sextuple into an IPv4 address and port.
func parsePASVReply(text string) (net.IP, int, error) {
	inner, err := parenContent(text)
	if err != nil {
		return nil, 0, err
	}
	fields := strings.Split(inner, ",")
	if len(fields) != 6 {
		return nil, 0, &ProtocolError{Command: "PASV", Response: text}
	}
	nums := make([]int, 6)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > 255 {
			return nil, 0, &ProtocolError{Command: "PASV", Response: text}
		}
		nums[i] = n
	}
	ip := net.IPv4(byte(nums[0]), byte(nums[1]), byte(nums[2]), byte(nums[3]))
	port := nums[4]*256 + nums[5]
	return ip, port, nil
}

// parseEPSVReply extracts the port from a 229 reply's "(|||port|)" payload.
func parseEPSVReply(text string) (int, error) {
	inner, err := parenContent(text)
	if err != nil {
		return 0, err
	}
	if !strings.HasPrefix(inner, "|||") || !strings.HasSuffix(inner, "|") {
		return 0, &ProtocolError{Command: "EPSV", Response: text}
	}
	portStr := strings.TrimSuffix(strings.TrimPrefix(inner, "|||"), "|")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, &ProtocolError{Command: "EPSV", Response: text}
	}
	return port, nil
}

// parenContent returns the text between the outermost '(' ... ')' pair.
func parenContent(text string) (string, error) {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return "", &ProtocolError{Command: "<data>", Response: text}
	}
	close := strings.LastIndexByte(text, ')')
	if close < open {
		return "", &ProtocolError{Command: "<data>", Response: text}
	}
	return text[open+1 : close], nil
}

// formatPORT builds "PORT a,b,c,d,p1,p2" for an IPv4 endpoint.
func formatPORT(ip net.IP, port int) string {
	v4 := ip.To4()
	return fmt.Sprintf("PORT %d,%d,%d,%d,%d,%d",
		v4[0], v4[1], v4[2], v4[3], port/256, port%256)
}

// formatEPRT builds "EPRT |N|ADDR|PORT|" where N is 1 for IPv4, 2 for IPv6.
func formatEPRT(ip net.IP, port int) string {
	n := 2
	addr := ip.String()
	if v4 := ip.To4(); v4 != nil {
		n = 1
		addr = v4.String()
	}
	return fmt.Sprintf("EPRT |%d|%s|%d|", n, addr, port)
}
