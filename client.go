package ftp

import (
	"crypto/tls"
	"strings"

	"github.com/mistnet/ftp/internal/ftplog"
)

// TransferMode selects which side of the data connection initiates the TCP
// connection: passive (client connects to a server-advertised port) or
// active (client listens, server connects).
type TransferMode int

const (
	TransferModePassive TransferMode = iota
	TransferModeActive
)

// TransferType selects whether bytes crossing a data connection are passed
// through unchanged (binary) or translated by the ASCII codec (ascii).
type TransferType int

const (
	TransferTypeBinary TransferType = iota
	TransferTypeASCII
)

// Client is a single-session, synchronous FTP client. It owns at most one
// control connection and at most one data connection at a time, is not
// safe for concurrent use, and blocks the calling goroutine for the
// duration of every operation — there is no async API (spec Non-goals).
type Client struct {
	ctrl *controlConn

	host string
	port int

	transferMode TransferMode
	transferType TransferType

	// tlsConfig, once set by WithTLSConfig, carries a ClientSessionCache
	// shared by every TLS handshake this client performs — control and
	// data alike (socket.go's wrapTLSSocket clones this exact config) —
	// which is what lets a data connection resume the control
	// connection's session (spec 4.3, 4.6, Design Notes).
	tlsConfig *tls.Config
	rfc2428   bool

	logger    ftplog.Logger
	observers []Observer
}

// New builds a Client from the given options. It does not connect to
// anything — construction and connection are separate operations, per
// spec 4.6.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		transferMode: TransferModePassive,
		transferType: TransferTypeBinary,
		rfc2428:      true,
		logger:       ftplog.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// IsConnected reports whether the control connection is currently open. It
// is false before the first Connect, after a graceful or abortive
// Disconnect, and after any 421 reply (spec §3 invariants, §8).
func (c *Client) IsConnected() bool {
	return c.ctrl != nil && c.ctrl.sock != nil && c.ctrl.sock.isConnected()
}

// usingTLS reports whether the control connection is currently TLS-wrapped.
func (c *Client) usingTLS() bool {
	if c.ctrl == nil || c.ctrl.sock == nil {
		return false
	}
	_, ok := c.ctrl.sock.(tlsCapable)
	return ok
}

// doCommand is the shared single-round-trip primitive every higher-level
// operation is built from: send one line, read one (possibly multi-line)
// reply, notify observers and the logger around both halves.
func (c *Client) doCommand(cmd string) (Reply, error) {
	if !c.IsConnected() {
		return Reply{}, &DisconnectedError{Command: cmd}
	}

	logged := maskCommand(cmd)
	c.notifyRequest(logged)
	c.logger.Debug("send-command", "cmd", logged)

	if err := c.ctrl.sendCommand(cmd); err != nil {
		c.logger.Error("send-command-failed", "cmd", logged, "err", err)
		return Reply{}, err
	}

	reply, err := c.ctrl.readReply()
	if err != nil {
		c.logger.Error("read-reply-failed", "cmd", logged, "err", err)
		return Reply{}, err
	}

	c.notifyReply(reply)
	c.logger.Debug("recv-reply", "code", reply.Code, "text", reply.Text)
	return reply, nil
}

// maskCommand implements the "well-known convention" from spec 4.7: a
// command beginning with PASS is logged/observed with its argument hidden.
func maskCommand(cmd string) string {
	if strings.HasPrefix(cmd, "PASS") {
		return "PASS *****"
	}
	return cmd
}

// typeCommand renders the TYPE command for a TransferType.
func typeCommand(t TransferType) string {
	if t == TransferTypeASCII {
		return "TYPE A"
	}
	return "TYPE I"
}
