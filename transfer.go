package ftp

import (
	"bytes"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
)

// openDataConn implements step 1 of the data-command flow (spec 4.6): a
// fresh data connection per the client's current mode and RFC 2428
// preference. Passive connects to the server's advertised endpoint;
// active listens on the control connection's local address and advertises
// it with PORT/EPRT.
func (c *Client) openDataConn() (*dataConn, Reply, error) {
	if c.transferMode == TransferModePassive {
		return openPassiveDataConn(c.ctrl, addrIP(c.ctrl.sock.remoteAddr()), c.rfc2428)
	}
	return openActiveDataConn(c.ctrl, addrIP(c.ctrl.sock.localAddr()), c.rfc2428)
}

func addrIP(addr net.Addr) net.IP {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	return nil
}

// readFinalReply reads a reply without sending a command first — used for
// the data-command flow's final reply (step 7) and the extra reply after a
// 426 during cancellation (step 6), neither of which are preceded by a new
// command write.
func (c *Client) readFinalReply() (Reply, error) {
	if !c.IsConnected() {
		return Reply{}, &DisconnectedError{Command: "<final-reply>"}
	}
	reply, err := c.ctrl.readReply()
	if err != nil {
		return Reply{}, err
	}
	c.notifyReply(reply)
	c.logger.Debug("recv-reply", "code", reply.Code, "text", reply.Text)
	return reply, nil
}

// failFatal tears the control connection down on any I/O-layer error,
// matching spec 4.6's "any I/O error at the socket layer bubbles up as a
// single fatal error that also closes the control connection".
func (c *Client) failFatal(err error) error {
	if err != nil && c.ctrl != nil {
		_ = c.ctrl.teardown()
	}
	return err
}

// dataCommandFlow is the shared procedure spec 4.6 describes for every
// data-bearing operation (RETR/STOR/STOU/APPE/LIST/NLST): open a data
// connection, send the main command, transfer bytes, then close and
// aggregate. transfer does the actual byte movement (C4-wrapped or not, as
// the caller needs) against the now-ready dataConn; cb is consulted only to
// detect cancellation for step 6's ABOR handshake — transfer itself is
// responsible for stopping when cb reports cancelled.
func (c *Client) dataCommandFlow(mainCmd string, cb TransferCallback, transfer func(*dataConn) error) (Replies, error) {
	var replies Replies

	// Every data-bearing operation gets its own correlation id, scoped to
	// this call's on_request/on_reply log lines so a caller grepping logs
	// can tell two overlapping-in-time transfers apart. It is purely a log
	// field: it never reaches the Observer interface or TransferCallback,
	// both of which keep the exact shapes spec.md's External Interfaces
	// section defines.
	transferID := uuid.NewString()
	savedLogger := c.logger
	c.logger = savedLogger.With("transfer_id", transferID)
	defer func() { c.logger = savedLogger }()

	dc, reply, err := c.openDataConn()
	if err != nil {
		return replies, c.failFatal(err)
	}
	replies.Append(reply)
	if !reply.IsPositive() {
		return replies, nil
	}

	prelim, err := c.doCommand(mainCmd)
	if err != nil {
		_ = dc.closeAbortive()
		return replies, c.failFatal(err)
	}
	replies.Append(prelim)
	if !prelim.IsPositive() {
		_ = dc.closeAbortive()
		return replies, nil
	}

	if c.transferMode == TransferModeActive {
		if err := dc.accept(); err != nil {
			return replies, c.failFatal(err)
		}
	}

	if c.tlsConfig != nil {
		if err := dc.overlayTLS(c.tlsConfig); err != nil {
			return replies, c.failFatal(err)
		}
	}

	c.logger.Debug("transfer-begin", "cmd", mainCmd)
	transferErr := transfer(dc)
	cancelled := cb != nil && cb.IsCancelled()

	if cancelled {
		// RFC 959 calls for a Telnet IP/Synch out-of-band sequence ahead
		// of ABOR so a server can interrupt a blocked data-connection
		// read/write; like the original client, this one skips that (most
		// servers mishandle OOB anyway) and just sends ABOR plain. A
		// server that's still blocked on the data connection answers the
		// interrupted main command with 426 once it notices, then ABOR's
		// own reply follows.
		abortReply, err := c.doCommand("ABOR")
		if err == nil {
			replies.Append(abortReply)
			if abortReply.Code == 426 {
				if extra, err := c.readFinalReply(); err == nil {
					replies.Append(extra)
				}
			}
		}
		_ = dc.closeAbortive()
		return replies, transferErr
	}

	if err := dc.closeGraceful(); err != nil {
		return replies, c.failFatal(err)
	}
	if transferErr != nil {
		return replies, c.failFatal(transferErr)
	}

	finalReply, err := c.readFinalReply()
	if err != nil {
		return replies, err
	}
	replies.Append(finalReply)
	return replies, nil
}

// Download runs the data-command flow with RETR, decoding through the
// ASCII codec when the client's transfer type is ascii.
func (c *Client) Download(sink io.Writer, path string, cb TransferCallback) (Replies, error) {
	return c.dataCommandFlow("RETR "+path, cb, func(dc *dataConn) error {
		return dc.recv(wrapDownloadStream(sink, c.transferType), cb)
	})
}

// Upload runs the data-command flow with STOR, or STOU when unique is true,
// encoding through the ASCII codec when the client's transfer type is
// ascii.
func (c *Client) Upload(src io.Reader, path string, unique bool, cb TransferCallback) (Replies, error) {
	cmd := "STOR " + path
	if unique {
		cmd = "STOU"
		if path != "" {
			cmd = "STOU " + path
		}
	}
	return c.dataCommandFlow(cmd, cb, func(dc *dataConn) error {
		return dc.send(wrapUploadStream(src, c.transferType), cb)
	})
}

// Append runs the data-command flow with APPE, like Upload.
func (c *Client) Append(src io.Reader, path string, cb TransferCallback) (Replies, error) {
	return c.dataCommandFlow("APPE "+path, cb, func(dc *dataConn) error {
		return dc.send(wrapUploadStream(src, c.transferType), cb)
	})
}

// GetFileList runs the data-command flow with LIST (or NLST when namesOnly
// is true), capturing the output into memory, firing OnFileList, and
// splitting it into lines (trailing '\r' stripped) — per the explicit
// Non-goal against any richer directory-listing parsing.
func (c *Client) GetFileList(path string, namesOnly bool) ([]string, Replies, error) {
	cmd := "LIST"
	if namesOnly {
		cmd = "NLST"
	}
	if path != "" {
		cmd += " " + path
	}

	var buf bytes.Buffer
	replies, err := c.dataCommandFlow(cmd, nil, func(dc *dataConn) error {
		return dc.recv(&buf, nil)
	})
	if err != nil {
		return nil, replies, err
	}
	if !replies.IsPositive() {
		return nil, replies, nil
	}

	text := buf.String()
	c.notifyFileList(text)

	var entries []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, replies, nil
}
