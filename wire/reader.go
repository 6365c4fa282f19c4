package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader decodes primitives from an in-memory document.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current read position.
func (r *Reader) Offset() int64 {
	return int64(r.pos)
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// take returns the next n bytes and advances past them.
func (r *Reader) take(op string, n int) ([]byte, error) {
	if n > r.Len() {
		return nil, &Error{
			Op:     op,
			Offset: r.Offset(),
			Err:    fmt.Errorf("%w: need %d bytes, %d remain", ErrTruncatedInput, n, r.Len()),
		}
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take("read u8", SizeU8)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take("read u16", SizeU16)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadI16 reads a signed 16-bit integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take("read u32", SizeU32)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadF32 reads an IEEE-754 single, preserving the exact bit pattern.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadIndex reads a string table index.
func (r *Reader) ReadIndex() (int, error) {
	v, err := r.ReadU16()
	return int(v), err
}

// ReadBytes reads exactly n raw bytes. The returned slice aliases the
// underlying buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take("read bytes", n)
}

// ReadUvarint reads a 7-bit group length prefix.
//
// Only the canonical (shortest) form is accepted, since any other form
// could not be written back unchanged.
func (r *Reader) ReadUvarint() (int, error) {
	start := r.Offset()
	var v uint64
	for i := 0; i < MaxVarintLen; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, &Error{Op: "read varint", Offset: start, Err: errorsUnwrap(err)}
		}
		v |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, &Error{Op: "read varint", Offset: start, Err: fmt.Errorf("%w: non-canonical varint", ErrInvalidEncoding)}
			}
			if v > math.MaxInt32 {
				return 0, &Error{Op: "read varint", Offset: start, Err: fmt.Errorf("%w: varint %d overflows int32", ErrInvalidEncoding, v)}
			}
			return int(v), nil
		}
	}
	return 0, &Error{Op: "read varint", Offset: start, Err: fmt.Errorf("%w: varint longer than %d bytes", ErrInvalidEncoding, MaxVarintLen)}
}

// ReadString reads a varint-prefixed byte string. The bytes are not
// validated as UTF-8.
func (r *Reader) ReadString() (string, error) {
	start := r.Offset()
	n, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > r.Len() {
		return "", &Error{
			Op:     "read string",
			Offset: start,
			Err:    fmt.Errorf("%w: length %d exceeds %d remaining bytes: %w", ErrInvalidEncoding, n, r.Len(), ErrTruncatedInput),
		}
	}
	b, _ := r.take("read string", n)
	return string(b), nil
}

// errorsUnwrap strips a nested *Error so offsets are reported once.
func errorsUnwrap(err error) error {
	if we, ok := err.(*Error); ok {
		return we.Err
	}
	return err
}
