package ustar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/ustar/internal/stream"
)

// BlockSize is the size of every block in an archive.
const BlockSize = 512

// Block is one fixed-size unit of an archive.
type Block [BlockSize]byte

// BlockReader reads consecutive blocks from a stream it owns.
type BlockReader struct {
	cr     *stream.CountingReader
	closer *stream.OnceCloser
	buf    Block
	err    error
	logger *slog.Logger
}

// NewBlockReader returns a BlockReader over r. If r implements io.Closer the
// BlockReader takes ownership and closes it once the stream is exhausted,
// fails, or Close is called.
func NewBlockReader(r io.Reader, opts ...Option) *BlockReader {
	cfg := newConfig(opts)
	return newBlockReader(r, cfg)
}

func newBlockReader(r io.Reader, cfg config) *BlockReader {
	return &BlockReader{
		cr:     &stream.CountingReader{R: r},
		closer: stream.NewOnceCloser(r),
		logger: cfg.logger,
	}
}

// Next reads the next block. It returns io.EOF when the stream ends cleanly
// on a block boundary, an error matching ErrShortBlock when it ends inside a
// block, and an error matching ErrStream for any other read failure.
// All three are sticky.
//
// The returned block is reused by the next call.
func (br *BlockReader) Next() (*Block, error) {
	if br.err != nil {
		return nil, br.err
	}

	start := br.cr.N
	n, err := io.ReadFull(br.cr, br.buf[:])
	switch {
	case err == nil:
		return &br.buf, nil
	case errors.Is(err, io.EOF):
		br.fail(io.EOF)
	case errors.Is(err, io.ErrUnexpectedEOF):
		br.fail(fmt.Errorf("%w: read %d of %d bytes at offset %d", ErrShortBlock, n, BlockSize, start))
	default:
		br.fail(fmt.Errorf("%w: offset %d: %w", ErrStream, start, err))
	}
	return nil, br.err
}

// Skip reads and discards n blocks. It returns the number of blocks
// discarded before any error.
func (br *BlockReader) Skip(n int64) (int64, error) {
	for i := range n {
		if _, err := br.Next(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Offset returns the number of bytes consumed from the stream.
func (br *BlockReader) Offset() int64 {
	return br.cr.N
}

// Close releases the underlying stream. Subsequent calls to Next return
// io.EOF unless an error was already recorded.
func (br *BlockReader) Close() error {
	if br.err == nil {
		br.err = io.EOF
	}
	return br.closer.Close()
}

func (br *BlockReader) fail(err error) {
	br.err = err
	if !errors.Is(err, io.EOF) {
		br.logger.Debug("block read failed",
			slog.Int64("offset", br.cr.N),
			slog.Any("error", err))
	}
	if cerr := br.closer.Close(); cerr != nil {
		br.logger.Debug("closing stream",
			slog.Any("error", cerr))
	}
}
