// Package wire implements the primitive encodings of the CELESTE MAP
// binary format.
//
// All fixed-width integers are little endian. Variable-length strings
// are prefixed with a 7-bit group varint (low group first, high bit set
// on every byte except the last) and are not terminated. String table
// references are unsigned 16-bit indices.
//
// Readers operate on a fully buffered document; writers stream to any
// io.Writer.
package wire

import (
	"errors"
	"fmt"
)

// Field sizes in bytes.
const (
	SizeU8  = 1
	SizeU16 = 2
	SizeU32 = 4

	// MaxVarintLen is the longest varint accepted for a length prefix.
	MaxVarintLen = 5

	// MaxIndex is the largest string table index that fits the format.
	MaxIndex = 0xFFFF
)

var (
	// ErrTruncatedInput is returned when the input ends before an
	// operation has the bytes it needs.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrInvalidEncoding is returned for malformed prefixes: over-long or
	// non-canonical varints and lengths that point past the input.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// Error reports a failed read together with the offset at which the
// operation started.
type Error struct {
	Op     string
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("wire: %s at offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("wire: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
