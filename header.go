package ustar

import (
	"bytes"
	"time"
	"unicode/utf8"
)

// Field widths of a ustar header, in on-disk order.
const (
	nameLen     = 100
	modeLen     = 8
	uidLen      = 8
	gidLen      = 8
	sizeLen     = 12
	mtimeLen    = 12
	checksumLen = 8
	typeflagLen = 1
	linknameLen = 100
	magicLen    = 6
	versionLen  = 2
)

// Field offsets within a header block.
const (
	nameOff     = 0
	modeOff     = nameOff + nameLen
	uidOff      = modeOff + modeLen
	gidOff      = uidOff + uidLen
	sizeOff     = gidOff + gidLen
	mtimeOff    = sizeOff + sizeLen
	checksumOff = mtimeOff + mtimeLen
	typeflagOff = checksumOff + checksumLen
	linknameOff = typeflagOff + typeflagLen
	magicOff    = linknameOff + linknameLen
	versionOff  = magicOff + magicLen
)

// Magic is the signature stored in the magic field of a ustar header.
const Magic = "ustar\x00"

// HasMagic reports whether b holds at least one block whose magic field is
// exactly Magic.
func HasMagic(b []byte) bool {
	if len(b) < BlockSize {
		return false
	}
	return string(b[magicOff:magicOff+magicLen]) == Magic
}

// NumDataBlocks returns the number of blocks needed to hold size bytes.
func NumDataBlocks(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + BlockSize - 1) / BlockSize
}

// Header is a read-only view of a header block. It does not copy the block;
// it is valid only as long as the block is.
type Header struct {
	b *Block
}

// NewHeader returns a Header view over b.
func NewHeader(b *Block) Header {
	return Header{b: b}
}

// Block returns the block the header views.
func (h Header) Block() *Block {
	return h.b
}

// HasMagic reports whether the magic field is exactly "ustar\x00".
func (h Header) HasMagic() bool {
	return HasMagic(h.b[:])
}

// IsNull reports whether the header marks the end of the archive. Only the
// first byte of the checksum field is examined; see IsZero for the full test.
func (h Header) IsNull() bool {
	return h.b[checksumOff] == 0
}

// IsZero reports whether every byte of the block is zero.
func (h Header) IsZero() bool {
	var zero Block
	return *h.b == zero
}

// Name returns the entry name: the bytes of the name field up to the first
// NUL, or all 100 bytes when there is none.
func (h Header) Name() (string, error) {
	return h.text("name", nameOff, nameLen)
}

// Linkname returns the link target, decoded like Name.
func (h Header) Linkname() (string, error) {
	return h.text("linkname", linknameOff, linknameLen)
}

// Size returns the size of the entry data in bytes. The first 11 bytes of the
// field must all be octal digits; the 12th is a terminator and is ignored.
func (h Header) Size() (int64, error) {
	var acc int64
	for i := range sizeLen - 1 {
		c := h.b[sizeOff+i]
		if c < '0' || c > '7' {
			return 0, &FieldError{Field: "size", Offset: sizeOff + i, Value: c, Err: ErrInvalidOctalDigit}
		}
		acc = acc*8 + int64(c-'0')
	}
	return acc, nil
}

// Mode returns the permission and mode bits.
func (h Header) Mode() (int64, error) {
	return h.numeric("mode", modeOff, modeLen)
}

// UID returns the owner user ID.
func (h Header) UID() (int64, error) {
	return h.numeric("uid", uidOff, uidLen)
}

// GID returns the owner group ID.
func (h Header) GID() (int64, error) {
	return h.numeric("gid", gidOff, gidLen)
}

// ModTime returns the modification time.
func (h Header) ModTime() (time.Time, error) {
	secs, err := h.numeric("mtime", mtimeOff, mtimeLen)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

// Typeflag returns the entry type byte.
func (h Header) Typeflag() byte {
	return h.b[typeflagOff]
}

// Version returns the two-byte version field that follows the magic.
func (h Header) Version() string {
	return string(h.b[versionOff : versionOff+versionLen])
}

func (h Header) text(field string, off, width int) (string, error) {
	raw := h.b[off : off+width]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if !utf8.Valid(raw) {
		return "", &FieldError{Field: field, Offset: off, Err: ErrInvalidText}
	}
	return string(raw), nil
}

// numeric decodes an octal field the way ustar writers commonly pad it:
// surrounded by spaces and terminated by NUL or space.
func (h Header) numeric(field string, off, width int) (int64, error) {
	raw := h.b[off : off+width]
	start, end := 0, len(raw)
	for start < end && (raw[start] == ' ' || raw[start] == 0) {
		start++
	}
	for end > start && (raw[end-1] == ' ' || raw[end-1] == 0) {
		end--
	}
	var acc int64
	for i := start; i < end; i++ {
		c := raw[i]
		if c < '0' || c > '7' {
			return 0, &FieldError{Field: field, Offset: off + i, Value: c, Err: ErrInvalidOctalDigit}
		}
		acc = acc*8 + int64(c-'0')
	}
	return acc, nil
}
