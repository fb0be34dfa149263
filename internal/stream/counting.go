// Package stream provides reader wrappers shared by the block reader and the
// command line tools.
package stream

import (
	"errors"
	"io"
	"math"
	"sync"
)

// ErrOverflow indicates a counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// CountingReader wraps a reader and counts bytes read.
type CountingReader struct {
	R io.Reader
	N int64
}

// Read implements io.Reader.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	if n > 0 {
		if cr.N > math.MaxInt64-int64(n) {
			return n, ErrOverflow
		}
		cr.N += int64(n)
	}
	return n, err
}

// OnceCloser closes the wrapped resource at most once. Later calls return
// the result of the first.
type OnceCloser struct {
	once sync.Once
	c    io.Closer
	err  error
}

// NewOnceCloser wraps r when it implements io.Closer. Otherwise Close is a no-op.
func NewOnceCloser(r io.Reader) *OnceCloser {
	c, _ := r.(io.Closer)
	return &OnceCloser{c: c}
}

// Close implements io.Closer.
func (o *OnceCloser) Close() error {
	o.once.Do(func() {
		if o.c != nil {
			o.err = o.c.Close()
		}
	})
	return o.err
}
