// Package ustar reads POSIX ustar archives as a stream of entries.
//
// An archive is a sequence of 512-byte blocks. Each entry starts with a
// header block followed by enough data blocks to hold the entry's size, and
// the archive ends with a null header. This package exposes three layers:
//
//   - [BlockReader] pulls fixed-size [Block] values from an io.Reader.
//   - [Header] decodes the fields of one block without copying it.
//   - [Iterator] combines the two, skipping data blocks and stopping at the
//     null header.
//
// # Quick Start
//
// List the entries of an archive:
//
//	it := ustar.NewIterator(f)
//	defer it.Close()
//	for entry, err := range it.All() {
//	    if ustar.IsTerminal(err) {
//	        return err
//	    }
//	    if entry.Header.IsNull() {
//	        break
//	    }
//	    name, _ := entry.Header.Name()
//	    size, _ := entry.Header.Size()
//	    fmt.Println(name, size)
//	}
//
// # Errors
//
// Read failures and truncated data are terminal and match [ErrStream],
// [ErrShortBlock] or [ErrTruncatedArchive]. Field decoding failures are
// reported as [*FieldError] values and only affect the entry they belong to.
//
// Remote archives can be streamed with the [github.com/meigma/ustar/http]
// package.
package ustar
