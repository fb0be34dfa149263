package ustar

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
)

// Entry is one archive member: its header and the data blocks that follow.
type Entry struct {
	// Index is the position of the entry in the archive, starting at 0.
	Index int
	// Offset is the byte offset of the header block in the stream.
	Offset int64
	// Header views the entry's header block. It is invalidated by the next
	// call to Iterator.Next.
	Header Header
	// DataBlocks is the number of data blocks skipped after the header.
	DataBlocks int64
	// Terminator is set on the header that ended the archive.
	Terminator bool
}

// Iterator yields the entries of an archive in stream order.
//
// Each call to Next reads one header block and discards the data blocks
// that header declares. Iteration stops at the first null header, which is
// itself returned as the final entry; blocks after it are never read.
type Iterator struct {
	br        *BlockReader
	hdr       Block
	index     int
	exhausted bool
	err       error
	strict    bool
	logger    *slog.Logger
}

// NewIterator returns an Iterator reading from r. The Iterator owns r: see
// NewBlockReader.
func NewIterator(r io.Reader, opts ...Option) *Iterator {
	cfg := newConfig(opts)
	return &Iterator{
		br:     newBlockReader(r, cfg),
		strict: cfg.strictNullTest,
		logger: cfg.logger,
	}
}

// Next returns the next entry.
//
// It returns io.EOF once the archive has been fully read. Errors matching
// ErrStream, ErrShortBlock or ErrTruncatedArchive are terminal and returned
// by every later call.
//
// When the size field cannot be decoded, Next returns the entry together
// with a *FieldError. Because the data extent is unknown no blocks are
// skipped, and the following call reads the next block as a header.
func (it *Iterator) Next() (Entry, error) {
	if it.err != nil {
		return Entry{}, it.err
	}
	if it.exhausted {
		return Entry{}, io.EOF
	}

	offset := it.br.Offset()
	blk, err := it.br.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			it.logger.Debug("stream ended without terminator",
				slog.Int("entries", it.index))
			it.exhausted = true
			return Entry{}, io.EOF
		}
		it.err = fmt.Errorf("entry %d: %w", it.index, err)
		return Entry{}, it.err
	}
	it.hdr = *blk

	entry := Entry{
		Index:  it.index,
		Offset: offset,
		Header: NewHeader(&it.hdr),
	}
	it.index++

	if it.isTerminator(entry.Header) {
		it.logger.Debug("reached terminator",
			slog.Int("index", entry.Index),
			slog.Int64("offset", offset))
		it.exhausted = true
		entry.Terminator = true
		if cerr := it.br.Close(); cerr != nil {
			it.logger.Debug("closing stream", slog.Any("error", cerr))
		}
		return entry, nil
	}

	size, err := entry.Header.Size()
	if err != nil {
		it.logger.Debug("undecodable size",
			slog.Int("index", entry.Index),
			slog.Any("error", err))
		return entry, fmt.Errorf("entry %d: %w", entry.Index, err)
	}

	entry.DataBlocks = NumDataBlocks(size)
	skipped, err := it.br.Skip(entry.DataBlocks)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %d of %d data blocks present", ErrTruncatedArchive, skipped, entry.DataBlocks)
		}
		it.err = fmt.Errorf("entry %d: %w", entry.Index, err)
		return Entry{}, it.err
	}

	it.logger.Debug("entry",
		slog.Int("index", entry.Index),
		slog.Int64("size", size),
		slog.Int64("data_blocks", entry.DataBlocks))
	return entry, nil
}

// All returns an iterator over the remaining entries. Recoverable errors are
// yielded with their entry; a terminal error is yielded once with a zero
// Entry and ends the sequence. A clean end is not reported.
func (it *Iterator) All() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for {
			entry, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(entry, err) || IsTerminal(err) {
				return
			}
		}
	}
}

// Offset returns the number of bytes consumed from the stream.
func (it *Iterator) Offset() int64 {
	return it.br.Offset()
}

// Close releases the underlying stream. Later calls to Next return io.EOF
// unless a terminal error was already returned.
func (it *Iterator) Close() error {
	it.exhausted = true
	return it.br.Close()
}

func (it *Iterator) isTerminator(h Header) bool {
	if it.strict {
		return h.IsZero()
	}
	return h.IsNull()
}
