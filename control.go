package ftp

import (
	"strconv"
	"strings"
)

// Reply is an immutable record of one server response: a numeric code and
// the full status text, joined by CRLF for multi-line replies with the
// trailing line terminator stripped.
type Reply struct {
	Code int
	Text string
}

// IsPositive reports whether the reply's code is in [100,400) — this also
// covers "intermediate" (3xx) replies, matching the upstream protocol
// library's own is_positive(): code != unspecified && code < 400.
func (r Reply) IsPositive() bool {
	return r.Code >= 100 && r.Code < 400
}

// IsNegative reports whether the reply's code is in [400,600).
func (r Reply) IsNegative() bool {
	return r.Code >= 400 && r.Code < 600
}

// IsIntermediate reports whether the reply's code is in [300,400).
func (r Reply) IsIntermediate() bool {
	return r.Code >= 300 && r.Code < 400
}

// Replies is an ordered, append-only sequence of Reply produced by a single
// client operation (an operation may involve several command/reply
// exchanges, e.g. login's USER/PASS/PBSZ/PROT/TYPE).
type Replies struct {
	list       []Reply
	isPositive bool
	seeded     bool
}

// Append records r in the sequence and updates the aggregate. The first
// reply appended seeds IsPositive(); every reply after that can only lower
// it (a negative reply makes the aggregate negative permanently — a later
// positive reply never raises it back). This quirk is inherited from the
// reference implementation and preserved deliberately, not "fixed".
func (rs *Replies) Append(r Reply) {
	rs.list = append(rs.list, r)
	if !rs.seeded {
		rs.isPositive = r.IsPositive()
		rs.seeded = true
		return
	}
	if !r.IsPositive() {
		rs.isPositive = false
	}
}

// IsPositive reports the aggregate outcome: true iff at least one reply has
// been appended and every non-intermediate reply appended so far was
// positive.
func (rs *Replies) IsPositive() bool {
	return rs.seeded && rs.isPositive
}

// Last returns the most recently appended reply, or the zero Reply if none
// has been appended yet.
func (rs *Replies) Last() Reply {
	if len(rs.list) == 0 {
		return Reply{}
	}
	return rs.list[len(rs.list)-1]
}

// All returns the replies appended so far, in order.
func (rs *Replies) All() []Reply {
	return rs.list
}

// StatusString joins every constituent reply's text with CRLF.
func (rs *Replies) StatusString() string {
	texts := make([]string, len(rs.list))
	for i, r := range rs.list {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\r\n")
}

// controlConn is the framed command/reply channel: one command line out,
// one (possibly multi-line) reply in, per round trip.
type controlConn struct {
	sock socket
}

// sendCommand appends CRLF to cmd and writes it atomically.
func (c *controlConn) sendCommand(cmd string) error {
	return c.sock.write([]byte(cmd + "\r\n"))
}

// readReply implements the RFC 959 multi-line reply grammar:
//  1. read one line, parse its first three bytes as a decimal code;
//  2. if the fourth byte is '-', keep reading lines until one begins with
//     the same three digits followed by a space — note this is the latent
//     RFC 959 "continuation line that happens to match" hazard, not
//     something to second-guess;
//  3. strip a single trailing '\n' then a single trailing '\r';
//  4. on code 421, tear the connection down the same way disconnect does.
func (c *controlConn) readReply() (Reply, error) {
	firstLine, err := c.sock.readLine()
	if err != nil {
		return Reply{}, err
	}

	code, err := parseReplyCode(firstLine)
	if err != nil {
		return Reply{}, err
	}

	lines := [][]byte{firstLine}
	if len(firstLine) >= 4 && firstLine[3] == '-' {
		for {
			line, err := c.sock.readLine()
			if err != nil {
				return Reply{}, err
			}
			lines = append(lines, line)
			if isLastReplyLine(line, code) {
				break
			}
		}
	}

	text := joinReplyLines(lines)
	reply := Reply{Code: code, Text: text}

	if code == 421 {
		_ = c.teardown()
	}

	return reply, nil
}

// isLastReplyLine reports whether line is the terminating line of a
// multi-line reply: its first three bytes equal code and its fourth byte is
// a space.
func isLastReplyLine(line []byte, code int) bool {
	if len(line) < 4 {
		return false
	}
	lineCode, err := strconv.Atoi(string(line[:3]))
	if err != nil {
		return false
	}
	return lineCode == code && line[3] == ' '
}

// joinReplyLines strips each line's trailing CRLF/LF, joins them with CRLF,
// per the multi-line-reply-as-one-Reply contract.
func joinReplyLines(lines [][]byte) string {
	trimmed := make([]string, len(lines))
	for i, l := range lines {
		s := strings.TrimSuffix(string(l), "\n")
		s = strings.TrimSuffix(s, "\r")
		trimmed[i] = s
	}
	return strings.Join(trimmed, "\r\n")
}

// parseReplyCode parses the first three bytes of line as a decimal code,
// failing with a protocol error if they aren't digits or the line is short.
func parseReplyCode(line []byte) (int, error) {
	if len(line) < 3 {
		return 0, &ProtocolError{Command: "<reply>", Response: string(line)}
	}
	code, err := strconv.Atoi(string(line[:3]))
	if err != nil {
		return 0, &ProtocolError{Command: "<reply>", Response: string(line)}
	}
	return code, nil
}

// teardown performs the shared "service shutting down" sequence: TLS
// shutdown if TLS is active, else a plain shutdown(both), tolerating
// not_connected/eof either way, then close. Both a 421 reply and an
// explicit non-graceful disconnect run through this.
func (c *controlConn) teardown() error {
	if c.sock == nil || !c.sock.isConnected() {
		return nil
	}
	_ = c.sock.shutdown()
	return c.sock.close()
}
