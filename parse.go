package ftp

import (
	"strconv"
	"strings"
	"time"
)

// parseSizeReply parses a 213 SIZE reply's text, "213 N", into N. text
// still starts with the reply code (Reply.Text keeps it), so this splits on
// the first space, the one RFC 3659 puts between code and byte count, and
// parses what follows.
func parseSizeReply(text string) (int64, error) {
	_, arg, ok := strings.Cut(text, " ")
	if !ok {
		return 0, &ProtocolError{Command: "SIZE", Response: text}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, &ProtocolError{Command: "SIZE", Response: text}
	}
	return n, nil
}

// mdtmLayout is RFC 3659's YYYYMMDDhhmmss, UTC. Servers may append a
// fractional-seconds suffix (".fff"); parseModTimeReply tolerates it by
// truncating before parsing rather than trying to parse variable-precision
// fractions.
const mdtmLayout = "20060102150405"

// parseModTimeReply parses a 213 MDTM reply's text, "213 YYYYMMDDhhmmss[.fff]".
func parseModTimeReply(text string) (time.Time, error) {
	_, arg, ok := strings.Cut(text, " ")
	if !ok {
		return time.Time{}, &ProtocolError{Command: "MDTM", Response: text}
	}
	arg = strings.TrimSpace(arg)
	if dot := strings.IndexByte(arg, '.'); dot >= 0 {
		arg = arg[:dot]
	}
	t, err := time.Parse(mdtmLayout, arg)
	if err != nil {
		return time.Time{}, &ProtocolError{Command: "MDTM", Response: text}
	}
	return t.UTC(), nil
}
