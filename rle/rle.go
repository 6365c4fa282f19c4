// Package rle implements the run-length encoding used for tile grids.
//
// An encoded string is a sequence of (count, byte) pairs, each count an
// unsigned byte in 1..255. The codec has no notion of rows: row
// delimiters are ordinary bytes.
package rle

import (
	"errors"
	"fmt"
)

// MaxRun is the longest run a single pair can carry.
const MaxRun = 255

var (
	// ErrInvalidRunLength is returned for a pair with a zero count.
	ErrInvalidRunLength = errors.New("rle: invalid run length")

	// ErrOddLength is returned when the input does not hold whole pairs.
	ErrOddLength = errors.New("rle: odd number of bytes")
)

// Encode returns the canonical pair encoding of src.
func Encode(src []byte) []byte {
	return AppendEncode(make([]byte, 0, EncodedLen(src)), src)
}

// AppendEncode appends the canonical pair encoding of src to dst.
//
// Runs are maximal; a run longer than MaxRun is emitted as full MaxRun
// pairs followed by the remainder.
func AppendEncode(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		c := src[i]
		j := i + 1
		for j < len(src) && src[j] == c && j-i < MaxRun {
			j++
		}
		dst = append(dst, byte(j-i), c)
		i = j
	}
	return dst
}

// EncodedLen returns the size of the canonical encoding of src.
func EncodedLen(src []byte) int {
	n := 0
	for i := 0; i < len(src); {
		j := i + 1
		for j < len(src) && src[j] == src[i] && j-i < MaxRun {
			j++
		}
		n += 2
		i = j
	}
	return n
}

// Decode expands pairs back into the original bytes.
func Decode(pairs []byte) ([]byte, error) {
	n, err := DecodedLen(pairs)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, n)
	for i := 0; i < len(pairs); i += 2 {
		for k := 0; k < int(pairs[i]); k++ {
			out = append(out, pairs[i+1])
		}
	}
	return out, nil
}

// DecodedLen validates pairs and returns the expanded size.
func DecodedLen(pairs []byte) (int, error) {
	if len(pairs)%2 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrOddLength, len(pairs))
	}
	n := 0
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i] == 0 {
			return 0, fmt.Errorf("%w: zero count in pair %d (byte %d)", ErrInvalidRunLength, i/2, i)
		}
		n += int(pairs[i])
	}
	return n, nil
}

// Canonical reports whether pairs is exactly what Encode would produce
// for its expansion.
func Canonical(pairs []byte) bool {
	if _, err := DecodedLen(pairs); err != nil {
		return false
	}
	for i := 2; i < len(pairs); i += 2 {
		if pairs[i+1] == pairs[i-1] && pairs[i-2] != MaxRun {
			return false
		}
	}
	return true
}
