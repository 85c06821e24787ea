package resource

import (
	"context"
	"io"
)

// NewRateLimitedWriter returns a writer for snapshot uploads that waits for
// the controller's IO budget before each write. With a nil controller or no
// IO limit it passes writes straight through.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

// RateLimitedWriter charges every write of a snapshot stream against the IO
// limit before passing it on.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// NewRateLimitedReader returns a reader for snapshot downloads that is
// throttled by the controller's IO budget.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

// RateLimitedReader charges the bytes each read returned, after the read.
// A snapshot decoder issues many short reads for the header and large ones
// for the vector sections; only the delivered bytes count.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

func (r *RateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n == 0 {
		return 0, err
	}
	if werr := r.rc.AcquireIO(r.ctx, n); werr != nil {
		return n, werr
	}
	return n, err
}
