package testutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockFromVisual(t *testing.T) {
	t.Parallel()

	block := BlockFromVisual("somefile^@^@000644 ^@" + string(bytes.Repeat([]byte("^@"), 400)) + "X")
	assert.Equal(t, byte('s'), block[0])
	assert.Equal(t, byte('e'), block[7])
	assert.Equal(t, byte(0), block[8])
	assert.Equal(t, byte('0'), block[10])
	assert.Equal(t, byte(0), block[17])
	assert.Equal(t, byte('X'), block[418])
	assert.Equal(t, byte(0), block[511])
}

func TestHeaderBlock(t *testing.T) {
	t.Parallel()

	b := HeaderBlock(TestEntry{Name: "file.txt", Data: []byte("abc")})
	assert.Equal(t, "file.txt\x00", string(b[:9]))
	assert.Equal(t, "00000000003\x00", string(b[124:136]))
	assert.Equal(t, "ustar\x0000", string(b[257:265]))
	assert.Equal(t, byte('0'), b[156])

	var sum int64
	for i, c := range b {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	assert.Equal(t, formatChecksum(sum), string(b[148:156]))
}

func formatChecksum(sum int64) string {
	const digits = "01234567"
	out := []byte("000000\x00 ")
	for i := 5; i >= 0; i-- {
		out[i] = digits[sum%8]
		sum /= 8
	}
	return string(out)
}

func TestArchive(t *testing.T) {
	t.Parallel()

	data := Archive(
		TestEntry{Name: "a", Data: []byte("hello")},
		TestEntry{Name: "b", Size: 513},
	)
	require.Len(t, data, (1+1+1+2+2)*blockSize)
	assert.Equal(t, "hello", string(data[blockSize:blockSize+5]))
	assert.Equal(t, make([]byte, 2*blockSize), data[5*blockSize:])
}

func TestShortReader(t *testing.T) {
	t.Parallel()

	r := ShortReader([]byte("abcdef"), 3, nil)
	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
