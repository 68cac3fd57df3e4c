package ftp

import (
	"testing"

	"github.com/mistnet/ftp/internal/ftplog"
)

type recordingObserver struct {
	name   string
	events *[]string
}

func (o *recordingObserver) OnConnected(host string, port int) {
	*o.events = append(*o.events, o.name+":connected")
}
func (o *recordingObserver) OnRequest(cmd string) {
	*o.events = append(*o.events, o.name+":request:"+cmd)
}
func (o *recordingObserver) OnReply(reply Reply) {
	*o.events = append(*o.events, o.name+":reply")
}
func (o *recordingObserver) OnFileList(text string) {
	*o.events = append(*o.events, o.name+":filelist")
}

func newTestClient(sock *fakeSocket) *Client {
	return &Client{
		ctrl:   &controlConn{sock: sock},
		logger: ftplog.NewNop(),
	}
}

func TestObserverDispatchOrder(t *testing.T) {
	var events []string
	a := &recordingObserver{name: "a", events: &events}
	b := &recordingObserver{name: "b", events: &events}

	c := newTestClient(newFakeSocket("200 ok\r\n"))
	c.AddObserver(a)
	c.AddObserver(b)

	if _, err := c.doCommand("NOOP"); err != nil {
		t.Fatalf("doCommand: %v", err)
	}

	want := []string{"a:request:NOOP", "b:request:NOOP", "a:reply", "b:reply"}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}
}

// RemoveObserver must be safe to call from inside a callback: dispatch
// always iterates a snapshot taken before the round of notifications.
type selfRemovingObserver struct {
	c      *Client
	events *[]string
}

func (o *selfRemovingObserver) OnConnected(string, int) {}
func (o *selfRemovingObserver) OnRequest(cmd string) {
	*o.events = append(*o.events, "self:request")
	o.c.RemoveObserver(o)
}
func (o *selfRemovingObserver) OnReply(Reply)     {}
func (o *selfRemovingObserver) OnFileList(string) {}

func TestObserverSnapshotSafeRemoval(t *testing.T) {
	var events []string
	c := newTestClient(newFakeSocket("200 ok\r\n200 ok\r\n"))
	self := &selfRemovingObserver{c: c, events: &events}
	other := &recordingObserver{name: "other", events: &events}
	c.AddObserver(self)
	c.AddObserver(other)

	if _, err := c.doCommand("NOOP"); err != nil {
		t.Fatalf("doCommand: %v", err)
	}
	if len(c.observers) != 1 {
		t.Fatalf("expected self to have removed itself, observers=%d", len(c.observers))
	}

	events = nil
	if _, err := c.doCommand("NOOP"); err != nil {
		t.Fatalf("doCommand: %v", err)
	}
	want := []string{"other:request:NOOP", "other:reply"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("got %v, want %v", events, want)
	}
}

func TestObserverSeesMaskedPassword(t *testing.T) {
	var events []string
	c := newTestClient(newFakeSocket("331 need password\r\n"))
	c.AddObserver(&recordingObserver{name: "a", events: &events})

	if _, err := c.doCommand("PASS hunter2"); err != nil {
		t.Fatalf("doCommand: %v", err)
	}
	if events[0] != "a:request:PASS *****" {
		t.Fatalf("got %q, expected masked password", events[0])
	}
}
