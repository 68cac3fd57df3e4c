package ftptest

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// session is one client's FTP conversation. It dispatches each command
// through a switch on the command name; the commands handled are this
// client's command surface plus MDTM and the X-prefixed aliases of PWD,
// CWD, CDUP, MKD and RMD.
type session struct {
	srv  *Server
	conn net.Conn
	r    *bufio.Reader

	cwd          string
	loggedIn     bool
	transferType byte // 'A' or 'I'
	renameFrom   string
	prot         string // "P" or "C"

	pasvListener net.Listener
	activeAddr   string
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		srv:          srv,
		conn:         conn,
		r:            bufio.NewReader(conn),
		cwd:          "/",
		transferType: 'I',
	}
}

func (s *session) reply(code int, text string) {
	fmt.Fprintf(s.conn, "%d %s\r\n", code, text)
}

func (s *session) run() {
	defer s.conn.Close()
	s.reply(220, "ftptest server ready")

	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		cmd = strings.ToUpper(cmd)

		if !s.dispatch(cmd, arg) {
			return
		}
	}
}

// dispatch handles one command, returning false when the session should
// close (QUIT, or an unrecoverable error).
func (s *session) dispatch(cmd, arg string) bool {
	switch cmd {
	case "USER":
		s.reply(331, "password required")
		return true
	case "PASS":
		s.loggedIn = true
		s.reply(230, "logged in")
		return true
	case "REIN":
		s.loggedIn = false
		s.reply(220, "ready for new user")
		return true
	case "QUIT":
		s.reply(221, "goodbye")
		return false
	case "NOOP":
		s.reply(200, "noop")
		return true
	case "SYST":
		s.reply(215, "UNIX Type: L8")
		return true
	case "PWD", "XPWD":
		s.reply(257, fmt.Sprintf("%q is the current directory", s.cwd))
		return true
	case "CWD", "XCWD":
		s.cwd = joinCWD(s.cwd, arg)
		s.reply(250, "directory changed")
		return true
	case "CDUP", "XCUP":
		s.cwd = joinCWD(s.cwd, "..")
		s.reply(250, "directory changed")
		return true
	case "MKD", "XMKD":
		s.srv.fs.mkdir(joinCWD(s.cwd, arg))
		s.reply(257, fmt.Sprintf("%q created", arg))
		return true
	case "RMD", "XRMD":
		if s.srv.fs.rmdir(joinCWD(s.cwd, arg)) {
			s.reply(250, "directory removed")
		} else {
			s.reply(550, "no such directory")
		}
		return true
	case "DELE":
		if s.srv.fs.deleteFile(joinCWD(s.cwd, arg)) {
			s.reply(250, "file deleted")
		} else {
			s.reply(550, "no such file")
		}
		return true
	case "RNFR":
		s.renameFrom = joinCWD(s.cwd, arg)
		s.reply(350, "ready for RNTO")
		return true
	case "RNTO":
		if s.srv.fs.rename(s.renameFrom, joinCWD(s.cwd, arg)) {
			s.reply(250, "renamed")
		} else {
			s.reply(550, "no such file")
		}
		return true
	case "SIZE":
		if n, ok := s.srv.fs.size(joinCWD(s.cwd, arg)); ok {
			s.reply(213, strconv.FormatInt(n, 10))
		} else {
			s.reply(550, "no such file")
		}
		return true
	case "MDTM":
		if t, ok := s.srv.fs.modTime(joinCWD(s.cwd, arg)); ok {
			s.reply(213, t.UTC().Format("20060102150405"))
		} else {
			s.reply(550, "no such file")
		}
		return true
	case "TYPE":
		arg = strings.ToUpper(strings.TrimSpace(arg))
		if arg == "A" || arg == "I" {
			s.transferType = arg[0]
			s.reply(200, "type set to "+arg)
		} else {
			s.reply(504, "unsupported type")
		}
		return true
	case "STAT":
		s.reply(211, "ftptest status ok")
		return true
	case "HELP":
		s.reply(214, "USER PASS TYPE PASV EPSV PORT EPRT RETR STOR APPE LIST NLST CWD PWD MKD RMD DELE RNFR RNTO SIZE MDTM ABOR NOOP QUIT")
		return true
	case "SITE":
		s.reply(200, "ok")
		return true
	case "ABOR":
		s.reply(225, "abor ok")
		return true
	case "PASV":
		return s.handlePASV()
	case "EPSV":
		return s.handleEPSV()
	case "PORT":
		return s.handlePORT(arg)
	case "EPRT":
		return s.handleEPRT(arg)
	case "AUTH":
		return s.handleAUTH(arg)
	case "PBSZ":
		s.reply(200, "pbsz ok")
		return true
	case "PROT":
		s.prot = strings.ToUpper(strings.TrimSpace(arg))
		s.reply(200, "prot ok")
		return true
	case "RETR":
		return s.handleRETR(arg)
	case "STOR":
		return s.handleSTOR(arg, false)
	case "STOU":
		return s.handleSTOR(arg, false)
	case "APPE":
		return s.handleSTOR(arg, true)
	case "LIST":
		return s.handleLIST(arg, false)
	case "NLST":
		return s.handleLIST(arg, true)
	default:
		s.reply(502, "command not implemented")
		return true
	}
}

func joinCWD(cwd, arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return cwd
	}
	if strings.HasPrefix(arg, "/") {
		return cleanPath(arg)
	}
	return cleanPath(cwd + "/" + arg)
}

func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return "/" + strings.Join(out, "/")
}

func (s *session) handlePASV() bool {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.reply(425, "cannot open passive connection")
		return true
	}
	s.pasvListener = ln
	port := ln.Addr().(*net.TCPAddr).Port
	s.reply(227, fmt.Sprintf("Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256))
	return true
}

func (s *session) handleEPSV() bool {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.reply(425, "cannot open passive connection")
		return true
	}
	s.pasvListener = ln
	port := ln.Addr().(*net.TCPAddr).Port
	s.reply(229, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port))
	return true
}

func (s *session) handlePORT(arg string) bool {
	fields := strings.Split(strings.TrimSpace(arg), ",")
	if len(fields) != 6 {
		s.reply(501, "malformed PORT argument")
		return true
	}
	nums := make([]int, 6)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			s.reply(501, "malformed PORT argument")
			return true
		}
		nums[i] = n
	}
	ip := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]*256 + nums[5]
	s.activeAddr = net.JoinHostPort(ip, strconv.Itoa(port))
	s.reply(200, "port ok")
	return true
}

func (s *session) handleEPRT(arg string) bool {
	parts := strings.Split(strings.TrimSpace(arg), "|")
	if len(parts) < 4 {
		s.reply(501, "malformed EPRT argument")
		return true
	}
	s.activeAddr = net.JoinHostPort(parts[2], parts[3])
	s.reply(200, "eprt ok")
	return true
}

func (s *session) handleAUTH(arg string) bool {
	if strings.ToUpper(strings.TrimSpace(arg)) != "TLS" || s.srv.TLSConfig == nil {
		s.reply(502, "auth mechanism not supported")
		return true
	}
	s.reply(234, "auth tls ok")
	tlsConn := tls.Server(s.conn, s.srv.TLSConfig)
	if err := tlsConn.Handshake(); err != nil {
		return false
	}
	s.conn = tlsConn
	s.r = bufio.NewReader(tlsConn)
	return true
}

// openDataConn returns the data connection for the command in progress,
// from whichever mode (PASV/EPSV vs PORT/EPRT) was last negotiated.
func (s *session) openDataConn() (net.Conn, error) {
	if s.pasvListener != nil {
		ln := s.pasvListener
		s.pasvListener = nil
		conn, err := ln.Accept()
		ln.Close()
		return conn, err
	}
	if s.activeAddr != "" {
		addr := s.activeAddr
		s.activeAddr = ""
		return net.DialTimeout("tcp", addr, 5*time.Second)
	}
	return nil, fmt.Errorf("ftptest: no data connection negotiated")
}

func (s *session) handleRETR(arg string) bool {
	data, ok := s.srv.fs.readFile(joinCWD(s.cwd, arg))
	if !ok {
		s.reply(550, "no such file")
		return true
	}
	conn, err := s.openDataConn()
	if err != nil {
		s.reply(425, "cannot open data connection")
		return true
	}
	s.reply(150, "opening data connection")
	_, werr := io.Copy(conn, asciiEncodeIfNeeded(data, s.transferType))
	conn.Close()
	if werr != nil {
		s.reply(426, "connection closed; transfer aborted")
	} else {
		s.reply(226, "transfer complete")
	}
	return true
}

func (s *session) handleSTOR(arg string, appendMode bool) bool {
	conn, err := s.openDataConn()
	if err != nil {
		s.reply(425, "cannot open data connection")
		return true
	}
	s.reply(150, "opening data connection")
	buf, rerr := io.ReadAll(conn)
	conn.Close()
	if rerr != nil {
		s.reply(426, "connection closed; transfer aborted")
		return true
	}
	path := joinCWD(s.cwd, arg)
	if appendMode {
		existing, _ := s.srv.fs.readFile(path)
		buf = append(existing, buf...)
	}
	s.srv.fs.writeFile(path, buf)
	s.reply(226, "transfer complete")
	return true
}

func (s *session) handleLIST(arg string, namesOnly bool) bool {
	conn, err := s.openDataConn()
	if err != nil {
		s.reply(425, "cannot open data connection")
		return true
	}
	s.reply(150, "opening data connection")
	names := s.srv.fs.list(joinCWD(s.cwd, arg))
	var sb strings.Builder
	for _, n := range names {
		if namesOnly {
			sb.WriteString(n)
		} else {
			sb.WriteString(fmt.Sprintf("-rw-r--r-- 1 owner group 0 Jan 1 00:00 %s", n))
		}
		sb.WriteString("\r\n")
	}
	_, werr := io.WriteString(conn, sb.String())
	conn.Close()
	if werr != nil {
		s.reply(426, "connection closed; transfer aborted")
	} else {
		s.reply(226, "transfer complete")
	}
	return true
}

// asciiEncodeIfNeeded is the server side's own (separately-grounded, much
// simpler) CRLF pass for TYPE A RETR: the test fixture doesn't need the
// full byte-boundary-safe codec the client has, since it always has the
// whole file in memory already.
func asciiEncodeIfNeeded(data []byte, transferType byte) io.Reader {
	if transferType != 'A' {
		return bytes.NewReader(data)
	}
	var out []byte
	for _, b := range data {
		if b == '\n' {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	return bytes.NewReader(out)
}
