package ustar

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for archive reads.
var (
	// ErrStream is returned when the underlying reader fails.
	ErrStream = errors.New("ustar: stream read failed")

	// ErrShortBlock is returned when the stream ends partway through a block.
	ErrShortBlock = errors.New("ustar: short block")

	// ErrTruncatedArchive is returned when the stream ends before all data
	// blocks declared by a header have been read.
	ErrTruncatedArchive = errors.New("ustar: truncated archive")

	// ErrInvalidOctalDigit is returned when a numeric field holds a byte
	// outside '0'..'7'.
	ErrInvalidOctalDigit = errors.New("ustar: invalid octal digit")

	// ErrInvalidText is returned when a text field is not valid UTF-8.
	ErrInvalidText = errors.New("ustar: invalid text")
)

// FieldError describes a header field that could not be decoded.
// It unwraps to ErrInvalidOctalDigit or ErrInvalidText.
type FieldError struct {
	Field  string
	Offset int  // byte offset within the block
	Value  byte // offending byte, zero for text errors
	Err    error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrInvalidOctalDigit) {
		return fmt.Sprintf("%s field: %v %q at offset %d", e.Field, e.Err, e.Value, e.Offset)
	}
	return fmt.Sprintf("%s field: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err ends iteration. Field decoding errors are
// local to one entry; stream, short block and truncation errors are not.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, ErrStream) ||
		errors.Is(err, ErrShortBlock) ||
		errors.Is(err, ErrTruncatedArchive)
}
