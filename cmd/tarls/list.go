package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/ustar"
	ustarhttp "github.com/meigma/ustar/http"
)

const invalidName = "<invalid name>"

var errStdinRepeated = errors.New("standard input (-) may only be listed once")

// checkPaths rejects argument lists that would read standard input from
// more than one worker.
func checkPaths(paths []string) error {
	stdin := 0
	for _, path := range paths {
		if path == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return errStdinRepeated
	}
	return nil
}

type lister struct {
	cfg    config
	logger *slog.Logger
	stdin  io.Reader
}

// run lists every archive in paths and writes the results to w in argument
// order. It reports false if any archive had an entry error.
func (l *lister) run(ctx context.Context, w io.Writer, paths []string) (bool, error) {
	if err := checkPaths(paths); err != nil {
		return false, err
	}
	outputs := make([]bytes.Buffer, len(paths))
	clean := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.workers)
	for i, path := range paths {
		g.Go(func() error {
			r, err := l.open(gctx, path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			if len(paths) > 1 {
				fmt.Fprintf(&outputs[i], "%s:\n", path)
			}
			clean[i] = l.list(&outputs[i], r)
			return nil
		})
	}
	err := g.Wait()

	for i := range outputs {
		if _, werr := w.Write(outputs[i].Bytes()); werr != nil {
			return false, werr
		}
	}
	if err != nil {
		return false, err
	}
	for _, ok := range clean {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (l *lister) open(ctx context.Context, path string) (io.Reader, error) {
	switch {
	case path == "-":
		return io.NopCloser(l.stdin), nil
	case l.cfg.url:
		src, err := ustarhttp.NewSource(ctx, path,
			ustarhttp.WithChunkBlocks(l.cfg.chunkBlocks),
			ustarhttp.WithConditionalHeaders(),
			ustarhttp.WithLogger(l.logger),
		)
		if err != nil {
			return nil, err
		}
		return src.Reader(ctx), nil
	default:
		return os.Open(path)
	}
}

// list writes one line per entry of the archive read from r. Entry errors
// are reported in place; it returns false if any occurred.
func (l *lister) list(w io.Writer, r io.Reader) bool {
	opts := []ustar.Option{
		ustar.WithLogger(l.logger),
		ustar.WithStrictTerminator(l.cfg.strictTerminator),
	}

	var digester digest.Digester
	if l.cfg.digest {
		digester = digest.Canonical.Digester()
		r = &teeReadCloser{Reader: io.TeeReader(r, digester.Hash()), src: r}
	}

	it := ustar.NewIterator(r, opts...)
	defer it.Close()

	clean := true
	first := true
	for entry, err := range it.All() {
		if ustar.IsTerminal(err) {
			fmt.Fprintln(w, err)
			clean = false
			break
		}
		if first {
			first = false
			if entry.Header.HasMagic() {
				fmt.Fprintln(w, "This looks like a valid tar file.")
			} else {
				fmt.Fprintln(w, "Bad magic in the first header.")
			}
		}
		if err != nil {
			fmt.Fprintln(w, err)
			clean = false
		}
		if entry.Terminator {
			fmt.Fprintf(w, "%d\tend of archive\n", entry.Index)
			continue
		}
		l.printEntry(w, entry)
	}

	if digester != nil {
		fmt.Fprintf(w, "digest\t%s\t%d bytes\n", digester.Digest(), it.Offset())
	}
	return clean
}

func (l *lister) printEntry(w io.Writer, entry ustar.Entry) {
	name, err := entry.Header.Name()
	if err != nil {
		fmt.Fprintf(w, "entry %d: %v\n", entry.Index, err)
		name = invalidName
	}

	size, err := entry.Header.Size()
	if err != nil {
		fmt.Fprintf(w, "%d\t%s\t?\n", entry.Index, name)
		return
	}
	if l.cfg.human {
		fmt.Fprintf(w, "%d\t%s\t%s\n", entry.Index, name, humanize.IBytes(uint64(size))) //nolint:gosec // size is never negative
		return
	}
	fmt.Fprintf(w, "%d\t%s\t%d\n", entry.Index, name, size)
}

// teeReadCloser keeps the source closable after wrapping it in a TeeReader.
type teeReadCloser struct {
	io.Reader
	src io.Reader
}

func (t *teeReadCloser) Close() error {
	if c, ok := t.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
