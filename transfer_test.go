package ftp

import (
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/mistnet/ftp/internal/ftplog"
)

type cancelAfterFirstNotify struct {
	cancelled bool
}

func (c *cancelAfterFirstNotify) Begin() {}
func (c *cancelAfterFirstNotify) End()   {}
func (c *cancelAfterFirstNotify) Notify(n int) {
	c.cancelled = true
}
func (c *cancelAfterFirstNotify) IsCancelled() bool { return c.cancelled }

// pasvReplyFor builds a 227 reply string advertising ln's own loopback port.
func pasvReplyFor(t *testing.T, ln net.Listener) string {
	t.Helper()
	port := ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("227 Entering Passive Mode (127,0,0,1,%d,%d).\r\n", port/256, port%256)
}

// Scenario 7 from spec §8: a cancelled upload whose ABOR draws a 426 (the
// interrupted STOR's own final reply) followed by a 225 (ABOR's own reply)
// ends up with both in the aggregate, in order, and Upload returns no error
// (send stops without error once the callback reports cancelled).
func TestUploadCancelledProducesAbortSequence(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	script := pasvReplyFor(t, ln) +
		"150 opening data connection\r\n" +
		"426 Connection closed; transfer aborted.\r\n" +
		"225 ABOR command successful.\r\n"

	c := &Client{
		ctrl:         &controlConn{sock: newFakeSocket(script)},
		transferMode: TransferModePassive,
		logger:       ftplog.NewNop(),
	}

	cb := &cancelAfterFirstNotify{}
	payload := strings.Repeat("x", dataBlockSize*2)
	replies, err := c.Upload(strings.NewReader(payload), "cancelled.txt", false, cb)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if replies.IsPositive() {
		t.Fatal("expected aggregate to be negative after the 426")
	}

	var codes []int
	for _, r := range replies.All() {
		codes = append(codes, r.Code)
	}
	want := []int{227, 150, 426, 225}
	if len(codes) != len(want) {
		t.Fatalf("got codes %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("got codes %v, want %v", codes, want)
		}
	}
}
