package celestemap

import (
	"errors"
	"fmt"
	"math"

	"github.com/Neumenon/celestemap/rle"
	"github.com/Neumenon/celestemap/wire"
)

// Element count limits of the wire form.
const (
	MaxAttributes = math.MaxUint8
	MaxChildren   = math.MaxUint16
	MaxRLEBytes   = math.MaxUint16

	// DefaultMaxDepth bounds element nesting on decode.
	DefaultMaxDepth = 512
)

// ============================================================
// Decode
// ============================================================

// DecodeElement reads one element and its subtree. Interned names and
// values are resolved through t.
func DecodeElement(r *wire.Reader, t *StringTable) (*Element, error) {
	return decodeElement(r, t, -1, 0, DefaultMaxDepth)
}

// decodeElement reads the element at child position index (-1 for a root).
func decodeElement(r *wire.Reader, t *StringTable, index, depth, maxDepth int) (*Element, error) {
	label := "?"
	if index >= 0 {
		label = fmt.Sprintf("[%d]", index)
	}
	if depth > maxDepth {
		return nil, atPath(offsetError("read element", r.Offset(),
			fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, maxDepth)), label)
	}

	name, err := readInterned(r, t, "read element name")
	if err != nil {
		return nil, atPath(err, label)
	}
	if index >= 0 {
		label = segment(name, index)
	} else {
		label = name
	}

	e := &Element{Name: name}
	n, err := r.ReadU8()
	if err != nil {
		return nil, atPath(err, label)
	}
	if n > 0 {
		e.Attrs = make(Attributes, 0, n)
	}
	for i := 0; i < int(n); i++ {
		attrName, err := readInterned(r, t, "read attribute name")
		if err != nil {
			return nil, atPath(err, label)
		}
		v, err := decodeValue(r, t)
		if err != nil {
			return nil, atPath(fmt.Errorf("attribute %q: %w", attrName, err), label)
		}
		e.Attrs = append(e.Attrs, Attr{Name: attrName, Value: v})
	}

	count, err := r.ReadU16()
	if err != nil {
		return nil, atPath(err, label)
	}
	if count > 0 {
		e.Children = make([]*Element, 0, min(int(count), r.Len()))
	}
	for i := 0; i < int(count); i++ {
		c, err := decodeElement(r, t, i, depth+1, maxDepth)
		if err != nil {
			return nil, atPath(err, label)
		}
		e.Children = append(e.Children, c)
	}
	return e, nil
}

func readInterned(r *wire.Reader, t *StringTable, op string) (string, error) {
	off := r.Offset()
	i, err := r.ReadIndex()
	if err != nil {
		return "", err
	}
	s, err := t.At(i)
	if err != nil {
		return "", offsetError(op, off, err)
	}
	return s, nil
}

// decodeValue reads a type tag and its payload.
func decodeValue(r *wire.Reader, t *StringTable) (Value, error) {
	off := r.Offset()
	tag, err := r.ReadU8()
	if err != nil {
		return Value{}, err
	}
	switch Kind(tag) {
	case KindBool:
		b, err := r.ReadU8()
		if err != nil {
			return Value{}, err
		}
		// Any nonzero byte is true; the byte itself is kept for the
		// next store.
		return Value{kind: KindBool, num: int32(b)}, nil
	case KindUInt8:
		b, err := r.ReadU8()
		return UInt8(b), err
	case KindInt16:
		v, err := r.ReadI16()
		return Int16(v), err
	case KindInt32:
		v, err := r.ReadI32()
		return Int32(v), err
	case KindFloat32:
		v, err := r.ReadF32()
		return Float32(v), err
	case KindInterned:
		s, err := readInterned(r, t, "read interned string")
		return Interned(s), err
	case KindLiteral:
		s, err := r.ReadString()
		return Literal(s), err
	case KindRLE:
		lenOff := r.Offset()
		n, err := r.ReadU16()
		if err != nil {
			return Value{}, err
		}
		if int(n) > r.Len() {
			return Value{}, offsetError("read rle string", lenOff,
				fmt.Errorf("%w: length %d exceeds %d remaining bytes: %w", ErrInvalidEncoding, n, r.Len(), ErrTruncatedInput))
		}
		pairsOff := r.Offset()
		pairs, err := r.ReadBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		v, err := rleFromPairs(pairs)
		if errors.Is(err, rle.ErrOddLength) {
			err = fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
		}
		if err != nil {
			return Value{}, offsetError("read rle string", pairsOff, err)
		}
		return v, nil
	default:
		return Value{}, offsetError("read value", off, fmt.Errorf("%w: %d", ErrUnknownTypeTag, tag))
	}
}

// ============================================================
// Encode
// ============================================================

// EncodeElement writes e and its subtree. Every name and interned value
// must already be in t.
func EncodeElement(w *wire.Writer, e *Element, t *StringTable) error {
	return encodeElement(w, e, t, -1)
}

func encodeElement(w *wire.Writer, e *Element, t *StringTable, index int) error {
	label := e.Name
	if index >= 0 {
		label = segment(e.Name, index)
	}
	if len(e.Attrs) > MaxAttributes {
		return atPath(fmt.Errorf("%w: %d attributes, at most %d", ErrLimitExceeded, len(e.Attrs), MaxAttributes), label)
	}
	if len(e.Children) > MaxChildren {
		return atPath(fmt.Errorf("%w: %d children, at most %d", ErrLimitExceeded, len(e.Children), MaxChildren), label)
	}

	if err := writeInterned(w, t, e.Name); err != nil {
		return atPath(err, label)
	}
	if err := w.WriteU8(uint8(len(e.Attrs))); err != nil {
		return atPath(err, label)
	}
	for _, attr := range e.Attrs {
		if err := writeInterned(w, t, attr.Name); err != nil {
			return atPath(err, label)
		}
		if err := encodeValue(w, attr.Value, t); err != nil {
			return atPath(fmt.Errorf("attribute %q: %w", attr.Name, err), label)
		}
	}
	if err := w.WriteU16(uint16(len(e.Children))); err != nil {
		return atPath(err, label)
	}
	for i, c := range e.Children {
		if err := encodeElement(w, c, t, i); err != nil {
			return atPath(err, label)
		}
	}
	return nil
}

func writeInterned(w *wire.Writer, t *StringTable, s string) error {
	i, ok := t.Index(s)
	if !ok {
		return fmt.Errorf("%w: %q is not in the string table", ErrStringIndexOutOfRange, s)
	}
	return w.WriteIndex(i)
}

// encodeValue writes the type tag and payload of v.
func encodeValue(w *wire.Writer, v Value, t *StringTable) error {
	if !v.kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTypeTag, v.kind)
	}
	if err := w.WriteU8(uint8(v.kind)); err != nil {
		return err
	}
	switch v.kind {
	case KindBool, KindUInt8:
		return w.WriteU8(uint8(v.num))
	case KindInt16:
		return w.WriteI16(int16(v.num))
	case KindInt32:
		return w.WriteI32(v.num)
	case KindFloat32:
		return w.WriteF32(v.f)
	case KindInterned:
		return writeInterned(w, t, v.str)
	case KindLiteral:
		return w.WriteString(v.str)
	default:
		pairs := v.runPairs()
		if len(pairs) > MaxRLEBytes {
			return fmt.Errorf("%w: rle string needs %d bytes, at most %d", ErrLimitExceeded, len(pairs), MaxRLEBytes)
		}
		if err := w.WriteU16(uint16(len(pairs))); err != nil {
			return err
		}
		return w.WriteBytes(pairs)
	}
}

// encodedSize returns the size of e as EncodeElement writes it.
func encodedSize(e *Element) int {
	n := 2 + 1 + 2
	for _, attr := range e.Attrs {
		n += 2 + 1
		v := attr.Value
		switch v.kind {
		case KindBool, KindUInt8:
			n++
		case KindInt16, KindInterned:
			n += 2
		case KindInt32, KindFloat32:
			n += 4
		case KindLiteral:
			n += wire.UvarintLen(len(v.str)) + len(v.str)
		default:
			n += 2 + len(v.runPairs())
		}
	}
	for _, c := range e.Children {
		n += encodedSize(c)
	}
	return n
}
