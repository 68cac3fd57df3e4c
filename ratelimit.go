package ftp

import "github.com/mistnet/ftp/internal/ratelimit"

// rateLimitedCallback composes a token-bucket limiter with an optional
// inner TransferCallback, so bandwidth throttling is just another
// TransferCallback rather than a separate mechanism the data-command flow
// needs to know about.
type rateLimitedCallback struct {
	limiter *ratelimit.Limiter
	inner   TransferCallback
}

// NewRateLimitedCallback returns a TransferCallback that throttles a
// transfer to bytesPerSecond, forwarding Begin/Notify/End/IsCancelled to
// inner (which may be nil). Pass the result as the cb argument to
// Download/Upload/Append.
func NewRateLimitedCallback(bytesPerSecond int64, inner TransferCallback) TransferCallback {
	return &rateLimitedCallback{
		limiter: ratelimit.New(bytesPerSecond),
		inner:   inner,
	}
}

func (r *rateLimitedCallback) Begin() {
	if r.inner != nil {
		r.inner.Begin()
	}
}

func (r *rateLimitedCallback) Notify(n int) {
	r.limiter.Take(n)
	if r.inner != nil {
		r.inner.Notify(n)
	}
}

func (r *rateLimitedCallback) End() {
	if r.inner != nil {
		r.inner.End()
	}
}

func (r *rateLimitedCallback) IsCancelled() bool {
	return r.inner != nil && r.inner.IsCancelled()
}
