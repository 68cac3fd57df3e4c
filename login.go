package ftp

import (
	"net"
	"strconv"
)

// Connect resolves host:port, opens the control connection, and reads the
// greeting. If the client was configured with a TLS config and the
// greeting is positive, it sends AUTH TLS and upgrades the control
// connection in place. If user is non-empty and the session is still
// positive, it runs Login. All replies are aggregated into the returned
// Replies (spec 4.6).
func (c *Client) Connect(host string, port int, user, password string) (Replies, error) {
	var replies Replies

	c.host, c.port = host, port
	sock := newPlainSocket()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if err := sock.connect("tcp", addr); err != nil {
		return replies, err
	}
	c.ctrl = &controlConn{sock: sock}
	c.notifyConnected(host, port)
	c.logger.Debug("connected", "host", host, "port", port)

	greeting, err := c.ctrl.readReply()
	if err != nil {
		return replies, err
	}
	c.notifyReply(greeting)
	replies.Append(greeting)
	if !replies.IsPositive() {
		return replies, nil
	}

	if c.tlsConfig != nil {
		tlsReplies, err := c.authTLS()
		appendAll(&replies, tlsReplies)
		if err != nil {
			return replies, err
		}
		if !replies.IsPositive() {
			return replies, nil
		}
	}

	if user != "" {
		loginReplies, err := c.Login(user, password)
		appendAll(&replies, loginReplies)
		if err != nil {
			return replies, err
		}
	}

	return replies, nil
}

// authTLS sends AUTH TLS and, on a positive reply, performs the client-side
// handshake. The handshake runs against c.tlsConfig (cloned by
// wrapTLSSocket), whose ClientSessionCache is what every subsequent data
// connection's handshake shares to attempt resumption — see WithTLSConfig.
func (c *Client) authTLS() (Replies, error) {
	var replies Replies
	reply, err := c.doCommand("AUTH TLS")
	if err != nil {
		return replies, err
	}
	replies.Append(reply)
	if !reply.IsPositive() {
		return replies, nil
	}

	conn, _ := c.ctrl.sock.detach()
	tlsSock := wrapTLSSocket(conn, c.tlsConfig)
	if err := tlsSock.tlsHandshake(); err != nil {
		return replies, err
	}
	c.ctrl.sock = tlsSock
	c.logger.Debug("tls-handshake-complete")
	return replies, nil
}

// Login runs USER, conditionally PASS, conditionally PBSZ/PROT (when TLS is
// active), and finally re-sends the current transfer type. All replies are
// aggregated (spec 4.6, 4.5).
func (c *Client) Login(user, password string) (Replies, error) {
	var replies Replies

	reply, err := c.doCommand("USER " + user)
	if err != nil {
		return replies, err
	}
	replies.Append(reply)

	if reply.Code == 331 {
		reply, err = c.doCommand("PASS " + password)
		if err != nil {
			return replies, err
		}
		replies.Append(reply)
	}

	if replies.IsPositive() && c.tlsConfig != nil {
		reply, err = c.doCommand("PBSZ 0")
		if err != nil {
			return replies, err
		}
		replies.Append(reply)

		if replies.IsPositive() {
			reply, err = c.doCommand("PROT P")
			if err != nil {
				return replies, err
			}
			replies.Append(reply)
		}
	}

	if replies.IsPositive() {
		reply, err = c.doCommand(typeCommand(c.transferType))
		if err != nil {
			return replies, err
		}
		replies.Append(reply)
	}

	return replies, nil
}

// Logout sends REIN. On a positive reply, if TLS was active on the control
// connection, it performs a TLS shutdown and swaps the control connection
// back to its plain variant (spec 4.6).
func (c *Client) Logout() (Replies, error) {
	var replies Replies
	reply, err := c.doCommand("REIN")
	if err != nil {
		return replies, err
	}
	replies.Append(reply)

	if reply.IsPositive() && c.usingTLS() {
		if ts, ok := c.ctrl.sock.(*tlsSocket); ok {
			// CloseWrite sends close_notify without closing the TCP
			// connection underneath, which the plain socket then reuses.
			_ = ts.conn.CloseWrite()
			c.ctrl.sock = wrapPlainSocket(ts.conn.NetConn(), nil)
		}
	}

	return replies, nil
}

// Disconnect tears down the control connection. If graceful, it first
// sends QUIT and keeps its reply; either way it then closes the socket
// (TLS shutdown first if TLS is active) if still connected (spec 4.6).
func (c *Client) Disconnect(graceful bool) (Replies, error) {
	var replies Replies

	if graceful && c.IsConnected() {
		reply, err := c.doCommand("QUIT")
		if err == nil {
			replies.Append(reply)
		}
	}

	if c.IsConnected() {
		_ = c.ctrl.teardown()
	}

	return replies, nil
}

// appendAll appends every reply from src onto dst, preserving order. Used
// to fold a sub-operation's Replies (e.g. authTLS's, Login's) into the
// caller's aggregate without losing the "first reply seeds positivity"
// contract — dst keeps accumulating in real call order.
func appendAll(dst *Replies, src Replies) {
	for _, r := range src.All() {
		dst.Append(r)
	}
}
