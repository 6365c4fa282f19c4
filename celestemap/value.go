package celestemap

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/Neumenon/celestemap/rle"
)

// Kind identifies how a value is stored. The numeric value of each kind
// is its on-disk type tag.
type Kind uint8

const (
	KindBool     Kind = 0 // u8 0 or 1
	KindUInt8    Kind = 1 // u8
	KindInt16    Kind = 2 // i16
	KindInt32    Kind = 3 // i32
	KindFloat32  Kind = 4 // f32
	KindInterned Kind = 5 // u16 string table index
	KindLiteral  Kind = 6 // varint-prefixed bytes
	KindRLE      Kind = 7 // u16 byte count, then run pairs
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUInt8:
		return "u8"
	case KindInt16:
		return "i16"
	case KindInt32:
		return "i32"
	case KindFloat32:
		return "f32"
	case KindInterned:
		return "interned"
	case KindLiteral:
		return "literal"
	case KindRLE:
		return "rle"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, bool) {
	for k := KindBool; k <= KindRLE; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Valid reports whether k is a known type tag.
func (k Kind) Valid() bool {
	return k <= KindRLE
}

// IsInt reports whether k holds an integer.
func (k Kind) IsInt() bool {
	return k == KindUInt8 || k == KindInt16 || k == KindInt32
}

// IsString reports whether k holds a string.
func (k Kind) IsString() bool {
	return k == KindInterned || k == KindLiteral || k == KindRLE
}

// internCutoff is the length from which Str stores strings inline.
const internCutoff = 64

// Value is an attribute value. Values are immutable; the zero Value is
// Bool(false).
type Value struct {
	kind Kind
	num  int32
	f    float32
	str  string

	// pairs holds the run pairs an RLE value was decoded from, so that
	// non-canonical encodings are written back unchanged.
	pairs []byte
}

// ============================================================
// Constructors
// ============================================================

// Bool creates a boolean value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// UInt8 creates an unsigned byte value.
func UInt8(v uint8) Value {
	return Value{kind: KindUInt8, num: int32(v)}
}

// Int16 creates a 16-bit integer value.
func Int16(v int16) Value {
	return Value{kind: KindInt16, num: int32(v)}
}

// Int32 creates a 32-bit integer value.
func Int32(v int32) Value {
	return Value{kind: KindInt32, num: v}
}

// Int creates an integer value with the narrowest kind that holds v.
func Int(v int32) Value {
	switch {
	case v >= 0 && v <= math.MaxUint8:
		return UInt8(uint8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return Int16(int16(v))
	default:
		return Int32(v)
	}
}

// Float32 creates a float value.
func Float32(v float32) Value {
	return Value{kind: KindFloat32, f: v}
}

// Interned creates a string stored through the string table.
func Interned(s string) Value {
	return Value{kind: KindInterned, str: s}
}

// Literal creates a string stored inline.
func Literal(s string) Value {
	return Value{kind: KindLiteral, str: s}
}

// RLE creates a run-length encoded string.
func RLE(s string) Value {
	return Value{kind: KindRLE, str: s}
}

// Str creates a string value, interned when short and inline otherwise.
func Str(s string) Value {
	if len(s) >= internCutoff {
		return Literal(s)
	}
	return Interned(s)
}

// StringOfKind creates a string value of the given string kind.
func StringOfKind(k Kind, s string) Value {
	switch k {
	case KindLiteral:
		return Literal(s)
	case KindRLE:
		return RLE(s)
	default:
		return Interned(s)
	}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the storage kind.
func (v Value) Kind() Kind {
	return v.kind
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.num != 0, true
}

// AsInt returns the payload of any integer kind.
func (v Value) AsInt() (int32, bool) {
	if !v.kind.IsInt() {
		return 0, false
	}
	return v.num, true
}

// AsFloat returns the payload of a float value.
func (v Value) AsFloat() (float32, bool) {
	if v.kind != KindFloat32 {
		return 0, false
	}
	return v.f, true
}

// AsNumber returns integer and float payloads as float64.
func (v Value) AsNumber() (float64, bool) {
	switch {
	case v.kind.IsInt():
		return float64(v.num), true
	case v.kind == KindFloat32:
		return float64(v.f), true
	}
	return 0, false
}

// AsString returns the payload of any string kind.
func (v Value) AsString() (string, bool) {
	if !v.kind.IsString() {
		return "", false
	}
	return v.str, true
}

// Equal reports whether two values have the same kind and payload.
// Floats compare by bit pattern.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch {
	case v.kind == KindFloat32:
		return math.Float32bits(v.f) == math.Float32bits(o.f)
	case v.kind.IsString():
		return v.str == o.str
	default:
		return v.num == o.num
	}
}

// String formats the payload for display.
func (v Value) String() string {
	switch {
	case v.kind == KindBool:
		return strconv.FormatBool(v.num != 0)
	case v.kind.IsInt():
		return strconv.FormatInt(int64(v.num), 10)
	case v.kind == KindFloat32:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	default:
		return strconv.Quote(v.str)
	}
}

// runPairs returns the pair encoding to write for an RLE value.
func (v Value) runPairs() []byte {
	if v.pairs != nil {
		return v.pairs
	}
	return rle.Encode([]byte(v.str))
}

// rleFromPairs returns an RLE value remembering its source encoding.
func rleFromPairs(pairs []byte) (Value, error) {
	out, err := rle.Decode(pairs)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindRLE, str: string(out), pairs: bytes.Clone(pairs)}, nil
}

// ============================================================
// Setters that keep the stored kind
// ============================================================

// withInt returns v replaced by n, keeping the integer kind when it still
// fits and widening otherwise.
func withInt(old Value, n int32) Value {
	switch old.kind {
	case KindUInt8:
		if n >= 0 && n <= math.MaxUint8 {
			return UInt8(uint8(n))
		}
	case KindInt16:
		if n >= math.MinInt16 && n <= math.MaxInt16 {
			return Int16(int16(n))
		}
	case KindInt32:
		return Int32(n)
	case KindFloat32:
		return Float32(float32(n))
	}
	return Int(n)
}

// withNumber returns v replaced by f, keeping float storage for floats
// and integer storage while f stays integral.
func withNumber(old Value, f float32) Value {
	if old.kind != KindFloat32 && f == float32(math.Trunc(float64(f))) &&
		f >= -(1<<31) && f < 1<<31 {
		return withInt(old, int32(f))
	}
	return Float32(f)
}

// withString returns a string value of the same string kind as old.
func withString(old Value, s string) Value {
	if old.kind.IsString() {
		return StringOfKind(old.kind, s)
	}
	return Str(s)
}
