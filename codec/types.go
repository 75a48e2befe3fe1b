// Package codec implements the binary collation table format.
//
// A serialized table is a single record:
//   - Magic "UCT" and the format version
//   - A flags byte (FlagCompressed)
//   - The uvarint length of the stored body, the body, and the CRC-32
//     (IEEE) of the stored body
//
// The body holds the table metadata followed by the trie nodes in preorder.
// With FlagCompressed the body is zstd-compressed.
//
// Decoding validates everything it reads and never returns a partial
// table.
package codec

import (
	"fmt"
)

// Version is the table format version.
const Version uint8 = 1

var magic = [3]byte{'U', 'C', 'T'}

// Flags of a serialized table.
type Flags uint8

const (
	FlagCompressed Flags = 0x01 // body is zstd-compressed

	knownFlags = FlagCompressed
)

// Metadata flags inside the body.
const (
	metaRetainCaseBits = 0x01
	metaNormalization  = 0x02

	knownMeta = metaRetainCaseBits | metaNormalization
)

// MaxBodySize is the default limit on the body size, compressed or not.
const MaxBodySize = 256 * 1024 * 1024

// maxDepth bounds the trie depth accepted by the decoder.
const maxDepth = 64

// IncompatibleTableVersionError is returned for data that is not a table
// of this format version.
type IncompatibleTableVersionError struct {
	Got  uint8
	Want uint8
	// Magic is set when the data did not start with the table magic.
	Magic bool
}

func (e *IncompatibleTableVersionError) Error() string {
	if e.Magic {
		return "codec: not a collation table (bad magic)"
	}
	return fmt.Sprintf("codec: table version %d, want %d", e.Got, e.Want)
}

// CorruptTableError is returned when a table fails validation.
type CorruptTableError struct {
	Reason string
	Offset int
}

func (e *CorruptTableError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("codec: corrupt table: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("codec: corrupt table: %s", e.Reason)
}

func corrupt(off int, format string, args ...any) error {
	return &CorruptTableError{Reason: fmt.Sprintf(format, args...), Offset: off}
}
