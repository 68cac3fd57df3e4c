package ftp

import (
	"io"
	"runtime"
)

// Encoder translates host "native text" bytes into network NVT-ASCII with
// CRLF line terminators, streamed on Read so it can sit directly in front
// of an upload's source stream (spec 4.4, "used for upload"). It never
// returns more translated bytes than the caller's buffer can hold; any
// overflow is held in pending and drained on the next Read.
type Encoder struct {
	r              io.Reader
	suppressNextLF bool
	pending        []byte
	scratch        []byte
	eof            bool
}

// NewEncoder wraps r, translating on Read.
func NewEncoder(r io.Reader) *Encoder {
	return &Encoder{r: r, scratch: make([]byte, 4096)}
}

func (e *Encoder) Read(p []byte) (int, error) {
	if len(e.pending) > 0 {
		n := copy(p, e.pending)
		e.pending = e.pending[n:]
		return n, nil
	}
	if e.eof {
		return 0, io.EOF
	}

	n, err := e.r.Read(e.scratch)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if err == io.EOF {
		e.eof = true
	}

	out := e.translate(e.scratch[:n])
	copied := copy(p, out)
	if copied < len(out) {
		e.pending = out[copied:]
	}
	if copied == 0 && e.eof {
		return 0, io.EOF
	}
	return copied, nil
}

// translate implements spec 4.4's encoder state machine: a bare '\r' emits
// CRLF and arms suppressNextLF so the matching '\n' (if any) isn't doubled
// into a second CRLF; a bare '\n' emits CRLF unless it was the other half
// of a CRLF pair just handled; anything else passes through unchanged.
func (e *Encoder) translate(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/4+2)
	for _, b := range src {
		switch b {
		case '\r':
			out = append(out, '\r', '\n')
			e.suppressNextLF = true
		case '\n':
			if e.suppressNextLF {
				e.suppressNextLF = false
			} else {
				out = append(out, '\r', '\n')
			}
		default:
			out = append(out, b)
			e.suppressNextLF = false
		}
	}
	return out
}

// Decoder translates network NVT-ASCII bytes back into host native text,
// streamed on Write so it can sit directly behind a download's destination
// stream (spec 4.4, "used for download"). A trailing lone '\r' at EOF isn't
// emitted until Flush, since seeing it might just mean the matching '\n'
// hasn't arrived yet.
type Decoder struct {
	w      io.Writer
	prevCR bool
}

// NewDecoder wraps w, translating on Write.
func NewDecoder(w io.Writer) *Decoder {
	return &Decoder{w: w}
}

func (d *Decoder) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		switch b {
		case '\r':
			if d.prevCR {
				out = append(out, '\r')
			} else {
				d.prevCR = true
			}
		case '\n':
			out = append(out, '\n')
			d.prevCR = false
		default:
			if d.prevCR {
				out = append(out, '\r')
			}
			out = append(out, b)
			d.prevCR = false
		}
	}
	if len(out) > 0 {
		if _, err := d.w.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush emits a final '\r' if one was held back waiting to see whether it
// was the start of a CRLF pair.
func (d *Decoder) Flush() error {
	if !d.prevCR {
		return nil
	}
	d.prevCR = false
	_, err := d.w.Write([]byte{'\r'})
	return err
}

// asciiIdentityPlatform reports whether the host's native text form already
// uses CRLF, making ASCII translation a no-op. A runtime check, not a build
// tag, per Design Notes' preference for portability over a compile-time
// switch.
func asciiIdentityPlatform() bool {
	return runtime.GOOS == "windows"
}

// wrapUploadStream returns r unchanged when ascii translation doesn't apply
// (binary transfer type, or a platform where it would be identity anyway);
// otherwise it returns r wrapped in an Encoder.
func wrapUploadStream(r io.Reader, transferType TransferType) io.Reader {
	if transferType != TransferTypeASCII || asciiIdentityPlatform() {
		return r
	}
	return NewEncoder(r)
}

// wrapDownloadStream is wrapUploadStream's counterpart for the receive
// side: it returns w unchanged when ascii translation doesn't apply, and
// otherwise a Decoder, whose Flush dataConn.recv calls once the transfer
// completes.
func wrapDownloadStream(w io.Writer, transferType TransferType) io.Writer {
	if transferType != TransferTypeASCII || asciiIdentityPlatform() {
		return w
	}
	return NewDecoder(w)
}
