// Package testutil builds ustar archives block by block for tests and the
// profiler.
package testutil

import (
	"fmt"
	"io"
	"time"
)

const blockSize = 512

// BlockFromVisual builds a block from a printable rendering in which "^@"
// stands for a NUL byte. Bytes past the end of the rendering are zero.
func BlockFromVisual(visual string) [blockSize]byte {
	var block [blockSize]byte
	j := 0
	for i := 0; i < len(visual) && j < blockSize; j++ {
		if visual[i] == '^' && i+1 < len(visual) && visual[i+1] == '@' {
			i += 2
			continue
		}
		block[j] = visual[i]
		i++
	}
	return block
}

// TestEntry describes one archive member.
type TestEntry struct {
	Name string
	// Size is the declared size. When zero, len(Data) is used.
	Size    int64
	Data    []byte
	Mode    int64
	UID     int64
	GID     int64
	ModTime time.Time
	// Typeflag defaults to '0' (regular file).
	Typeflag byte
}

// HeaderBlock encodes e as a ustar header block with a valid checksum.
func HeaderBlock(e TestEntry) [blockSize]byte {
	var b [blockSize]byte
	size := e.Size
	if size == 0 {
		size = int64(len(e.Data))
	}
	mode := e.Mode
	if mode == 0 {
		mode = 0o644
	}
	typeflag := e.Typeflag
	if typeflag == 0 {
		typeflag = '0'
	}

	copy(b[0:100], e.Name)
	putOctal(b[100:108], mode)
	putOctal(b[108:116], e.UID)
	putOctal(b[116:124], e.GID)
	putOctal(b[124:136], size)
	var mtime int64
	if !e.ModTime.IsZero() {
		mtime = e.ModTime.Unix()
	}
	putOctal(b[136:148], mtime)
	b[156] = typeflag
	copy(b[257:263], "ustar\x00")
	copy(b[263:265], "00")

	for i := 148; i < 156; i++ {
		b[i] = ' '
	}
	var sum int64
	for _, c := range b {
		sum += int64(c)
	}
	copy(b[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return b
}

// Archive encodes entries followed by two zero blocks. Entry data is padded
// to a whole number of blocks; entries with a declared Size but no Data get
// zero-filled data of that size.
func Archive(entries ...TestEntry) []byte {
	var out []byte
	for _, e := range entries {
		hdr := HeaderBlock(e)
		out = append(out, hdr[:]...)
		size := e.Size
		if size == 0 {
			size = int64(len(e.Data))
		}
		data := make([]byte, padded(size))
		copy(data, e.Data)
		out = append(out, data...)
	}
	return append(out, make([]byte, 2*blockSize)...)
}

// ShortReader returns the first n bytes of data and then fails with err.
// A nil err ends the stream with io.EOF.
func ShortReader(data []byte, n int, err error) io.Reader {
	if n > len(data) {
		n = len(data)
	}
	return &failingReader{data: data[:n], err: err}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func padded(size int64) int64 {
	return (size + blockSize - 1) / blockSize * blockSize
}

func putOctal(field []byte, v int64) {
	copy(field, fmt.Sprintf("%0*o\x00", len(field)-1, v))
}
