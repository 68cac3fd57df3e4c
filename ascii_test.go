package ftp

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func encodeAll(t *testing.T, input string, readSize int) string {
	t.Helper()
	enc := NewEncoder(strings.NewReader(input))
	var out bytes.Buffer
	buf := make([]byte, readSize)
	for {
		n, err := enc.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return out.String()
}

func decodeAll(t *testing.T, input string, writeSize int) string {
	t.Helper()
	var out bytes.Buffer
	dec := NewDecoder(&out)
	for i := 0; i < len(input); i += writeSize {
		end := i + writeSize
		if end > len(input) {
			end = len(input)
		}
		if _, err := dec.Write([]byte(input[i:end])); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	if err := dec.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return out.String()
}

// Scenario 5 from spec §8.
func TestEncoderLiteralScenario(t *testing.T) {
	input := "\r\rc\n\r\r\n\ro\r\n\r\n\n\rn\nte\rnt\n"
	want := "\r\n\r\nc\r\n\r\n\r\n\r\no\r\n\r\n\r\n\r\nn\r\nte\r\nnt\r\n"

	got := encodeAll(t, input, 4)
	if got != want {
		t.Fatalf("encode mismatch:\n got  %q\n want %q", got, want)
	}

	// Output must not depend on how the caller chunks its reads.
	for _, size := range []int{1, 2, 3, 7, 64} {
		if got := encodeAll(t, input, size); got != want {
			t.Fatalf("encode with read size %d mismatch:\n got  %q\n want %q", size, got, want)
		}
	}
}

// Scenario 6 from spec §8.
func TestDecoderLiteralScenario(t *testing.T) {
	input := "\r\n\rc\r\n\r\n\no\r\r\n\r\nn\r\nte\n\rnt\r\n"
	want := "\n\rc\n\n\no\r\n\nn\nte\n\rnt\n"

	got := decodeAll(t, input, 4)
	if got != want {
		t.Fatalf("decode mismatch:\n got  %q\n want %q", got, want)
	}

	for _, size := range []int{1, 2, 3, 7, 64} {
		if got := decodeAll(t, input, size); got != want {
			t.Fatalf("decode with write size %d mismatch:\n got  %q\n want %q", size, got, want)
		}
	}
}

// Round trip: the encoder turns a lone '\r', a lone '\n' and a "\r\n" pair
// each into one CRLF, and the decoder turns each CRLF into '\n', so
// decode(encode(S)) is S with every line ending replaced by a single '\n'
// and every other byte unchanged.
func TestASCIICodecRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello world",
		"line one\nline two\n",
		"line one\r\nline two\r\n",
		"\r\r\r",
		"\n\n\n",
		"mixed\r\nendings\rhere\nand\r\nthere",
		"trailing cr\r",
		"trailing crlf\r\n",
	}

	for _, s := range cases {
		encoded := encodeAll(t, s, 1)
		decoded := decodeAll(t, encoded, 1)
		want := strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
		if decoded != want {
			t.Errorf("round trip failed for %q: encoded %q, decoded %q, want %q", s, encoded, decoded, want)
		}
	}
}

// The encoder's pending output must survive a destination buffer of size 1
// even when a '\r' falls on the boundary.
func TestEncoderOutputBufferSizeOne(t *testing.T) {
	got := encodeAll(t, "a\rb", 1)
	want := "a\r\nb"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
