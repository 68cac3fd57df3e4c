package ftp

import "time"

// CWD changes the working directory.
func (c *Client) ChangeDir(path string) (Reply, error) {
	return c.doCommand("CWD " + path)
}

// CDUP moves to the parent of the working directory.
func (c *Client) ChangeDirToParent() (Reply, error) {
	return c.doCommand("CDUP")
}

// PWD reports the current working directory. The server's reply text
// contains the quoted path; parsing that quoting convention is left to the
// caller, matching the rest of this client's "single reply, caller reads
// the text" treatment of simple commands.
func (c *Client) CurrentDir() (Reply, error) {
	return c.doCommand("PWD")
}

// MKD creates a directory.
func (c *Client) MakeDir(path string) (Reply, error) {
	return c.doCommand("MKD " + path)
}

// RMD removes a directory.
func (c *Client) RemoveDir(path string) (Reply, error) {
	return c.doCommand("RMD " + path)
}

// DELE removes a file.
func (c *Client) Delete(path string) (Reply, error) {
	return c.doCommand("DELE " + path)
}

// SYST reports the server's operating system.
func (c *Client) System() (Reply, error) {
	return c.doCommand("SYST")
}

// STAT reports status; with path empty, it reports overall server status,
// otherwise status for the given path.
func (c *Client) Stat(path string) (Reply, error) {
	if path == "" {
		return c.doCommand("STAT")
	}
	return c.doCommand("STAT " + path)
}

// HELP lists supported commands, or help on a single command when cmd is
// non-empty.
func (c *Client) Help(cmd string) (Reply, error) {
	if cmd == "" {
		return c.doCommand("HELP")
	}
	return c.doCommand("HELP " + cmd)
}

// SiteHelp issues "SITE HELP".
func (c *Client) SiteHelp() (Reply, error) {
	return c.doCommand("SITE HELP")
}

// Site issues an arbitrary "SITE <cmd>" subcommand.
func (c *Client) Site(cmd string) (Reply, error) {
	return c.doCommand("SITE " + cmd)
}

// Noop sends NOOP, useful for keeping a connection alive out of band (the
// core itself has no timeout or keep-alive machinery — spec 5).
func (c *Client) Noop() (Reply, error) {
	return c.doCommand("NOOP")
}

// Abort sends ABOR outside of a transfer-cancellation flow (the in-flight
// cancellation handshake in transfer.go has its own, stricter sequencing).
func (c *Client) Abort() (Reply, error) {
	return c.doCommand("ABOR")
}

// Rename issues RNFR from, expects 350, then RNTO to. Both replies are
// aggregated (spec 4.6).
func (c *Client) Rename(from, to string) (Replies, error) {
	var replies Replies

	reply, err := c.doCommand("RNFR " + from)
	if err != nil {
		return replies, err
	}
	replies.Append(reply)
	if reply.Code != 350 {
		return replies, nil
	}

	reply, err = c.doCommand("RNTO " + to)
	if err != nil {
		return replies, err
	}
	replies.Append(reply)
	return replies, nil
}

// Size issues SIZE and parses the 213 byte-count reply (spec 4.6, 4.8, 6).
func (c *Client) Size(path string) (int64, Reply, error) {
	reply, err := c.doCommand("SIZE " + path)
	if err != nil {
		return 0, reply, err
	}
	if !reply.IsPositive() {
		return 0, reply, nil
	}
	n, err := parseSizeReply(reply.Text)
	if err != nil {
		return 0, reply, err
	}
	return n, reply, nil
}

// ModTime issues MDTM and parses the 213 timestamp reply. Supplemented from
// original_source (RFC 3659) — spec.md documents the MDTM reply grammar in
// its External Interfaces but never wires an operation to it.
func (c *Client) ModTime(path string) (time.Time, Reply, error) {
	reply, err := c.doCommand("MDTM " + path)
	if err != nil {
		return time.Time{}, reply, err
	}
	if !reply.IsPositive() {
		return time.Time{}, reply, nil
	}
	t, err := parseModTimeReply(reply.Text)
	if err != nil {
		return time.Time{}, reply, err
	}
	return t, reply, nil
}

// SetTransferType issues TYPE I or TYPE A and, on a positive reply, updates
// the client's stored type — a successful TYPE exchange is the only
// mutator of the effective type (spec §3).
func (c *Client) SetTransferType(t TransferType) (Reply, error) {
	reply, err := c.doCommand(typeCommand(t))
	if err != nil {
		return reply, err
	}
	if reply.IsPositive() {
		c.transferType = t
	}
	return reply, nil
}
