package ftp

import (
	"net"
	"testing"
)

// Scenario 3 from spec §8.
func TestParsePASVReply(t *testing.T) {
	ip, port, err := parsePASVReply("227 Entering Passive Mode (127,0,0,1,8,20).")
	if err != nil {
		t.Fatalf("parsePASVReply: %v", err)
	}
	if !ip.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("got ip %v, want 127.0.0.1", ip)
	}
	if port != 2068 {
		t.Fatalf("got port %d, want 2068", port)
	}
}

// Scenario 4 from spec §8.
func TestParseEPSVReply(t *testing.T) {
	port, err := parseEPSVReply("229 Entering Extended Passive Mode (|||6446|)")
	if err != nil {
		t.Fatalf("parseEPSVReply: %v", err)
	}
	if port != 6446 {
		t.Fatalf("got port %d, want 6446", port)
	}
}

func TestParsePASVReplyMalformed(t *testing.T) {
	if _, _, err := parsePASVReply("227 Entering Passive Mode."); err == nil {
		t.Fatal("expected error for malformed PASV reply")
	}
}

func TestParseEPSVReplyMalformed(t *testing.T) {
	if _, err := parseEPSVReply("229 Entering Extended Passive Mode"); err == nil {
		t.Fatal("expected error for malformed EPSV reply")
	}
}

func TestFormatPORT(t *testing.T) {
	got := formatPORT(net.IPv4(127, 0, 0, 1), 2068)
	want := "PORT 127,0,0,1,8,20"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatEPRTIPv4(t *testing.T) {
	got := formatEPRT(net.IPv4(127, 0, 0, 1), 6446)
	want := "EPRT |1|127.0.0.1|6446|"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatEPRTIPv6(t *testing.T) {
	ip := net.ParseIP("::1")
	got := formatEPRT(ip, 6446)
	want := "EPRT |2|::1|6446|"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParenContentMissingParens(t *testing.T) {
	if _, err := parenContent("no parens here"); err == nil {
		t.Fatal("expected error when no parens present")
	}
}
