package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes primitives to an io.Writer.
type Writer struct {
	w       io.Writer
	written int64
	scratch [MaxVarintLen]byte
}

// NewWriter creates a writer that emits to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Written returns the number of bytes emitted so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) emit(op string, b []byte) error {
	n, err := w.w.Write(b)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WriteU8 writes one unsigned byte.
func (w *Writer) WriteU8(v uint8) error {
	w.scratch[0] = v
	return w.emit("write u8", w.scratch[:1])
}

// WriteU16 writes an unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) error {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	return w.emit("write u16", w.scratch[:2])
}

// WriteI16 writes a signed 16-bit integer.
func (w *Writer) WriteI16(v int16) error {
	return w.WriteU16(uint16(v))
}

// WriteU32 writes an unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	return w.emit("write u32", w.scratch[:4])
}

// WriteI32 writes a signed 32-bit integer.
func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

// WriteF32 writes an IEEE-754 single using its exact bit pattern.
func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

// WriteIndex writes a string table index.
func (w *Writer) WriteIndex(i int) error {
	if i < 0 || i > MaxIndex {
		return fmt.Errorf("write index: %d does not fit in 16 bits", i)
	}
	return w.WriteU16(uint16(i))
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return w.emit("write bytes", b)
}

// WriteUvarint writes a 7-bit group length prefix in canonical form.
func (w *Writer) WriteUvarint(v int) error {
	if v < 0 || v > math.MaxInt32 {
		return fmt.Errorf("write varint: %d out of range", v)
	}
	return w.emit("write varint", AppendUvarint(w.scratch[:0], v))
}

// WriteString writes a varint-prefixed byte string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUvarint(len(s)); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	n, err := io.WriteString(w.w, s)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

// AppendUvarint appends the canonical varint encoding of v to dst.
func AppendUvarint(dst []byte, v int) []byte {
	u := uint32(v)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

// UvarintLen returns the encoded size of v.
func UvarintLen(v int) int {
	n := 1
	for u := uint32(v); u >= 0x80; u >>= 7 {
		n++
	}
	return n
}
