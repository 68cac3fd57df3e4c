package ftp

import "fmt"

// ProtocolError is returned when a server reply cannot be parsed (a reply
// code, a PASV/EPSV payload, a SIZE or MDTM value). A negative reply is not
// an error: it is returned as a Reply. It carries the command/response
// context for debugging.
type ProtocolError struct {
	// Command is the FTP command that was sent (e.g. "PASV").
	Command string

	// Response is the raw status text received from the server.
	Response string

	// Code is the numeric FTP reply code, or 0 if none could be parsed.
	Code int
}

func (e *ProtocolError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("ftp: %s: %s", e.Command, e.Response)
	}
	return fmt.Sprintf("ftp: %s: %s (code %d)", e.Command, e.Response, e.Code)
}

// DisconnectedError is returned by any operation attempted after the
// control connection has been torn down, whether by Disconnect or by a
// 421 reply.
type DisconnectedError struct {
	Command string
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("ftp: %s: control connection is closed", e.Command)
}
