package celestemap

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/celestemap/rle"
)

// ============================================================
// Tree snapshots
// ============================================================
//
// A snapshot is a text or CBOR rendering of an element tree that keeps
// names, order and value kinds, for diffing and fixtures. A payload the
// text form cannot carry exactly (NaN bits, a bool byte other than 0 or
// 1, non-canonical run pairs, bytes that are not UTF-8) is also written
// in raw as hex of its on-disk bytes, and raw wins on the way back.

// Format selects a snapshot encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

type treeNode struct {
	Name     string     `json:"name" yaml:"name" cbor:"1,keyasint"`
	Attrs    []treeAttr `json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"2,keyasint,omitempty"`
	Children []treeNode `json:"children,omitempty" yaml:"children,omitempty" cbor:"3,keyasint,omitempty"`
}

type treeAttr struct {
	Name  string `json:"name" yaml:"name" cbor:"1,keyasint"`
	Kind  string `json:"kind" yaml:"kind" cbor:"2,keyasint"`
	Value string `json:"value" yaml:"value" cbor:"3,keyasint"`
	Raw   string `json:"raw,omitempty" yaml:"raw,omitempty" cbor:"4,keyasint,omitempty"`
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("celestemap: CBOR encoder initialization failed: " + err.Error())
	}
	// Strings are raw bytes in a map document, so they are not required
	// to be valid UTF-8.
	cborDec, err = cbor.DecOptions{UTF8: cbor.UTF8DecodeInvalid}.DecMode()
	if err != nil {
		panic("celestemap: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalTree renders e in the given format.
func MarshalTree(e *Element, f Format) ([]byte, error) {
	n := toTreeNode(e)
	switch f {
	case FormatJSON:
		return json.MarshalIndent(n, "", "  ")
	case FormatYAML:
		return yaml.Marshal(n)
	case FormatCBOR:
		return cborEnc.Marshal(n)
	default:
		return nil, fmt.Errorf("marshal tree: unknown format %v", f)
	}
}

// UnmarshalTree parses a snapshot written by MarshalTree.
func UnmarshalTree(data []byte, f Format) (*Element, error) {
	var n treeNode
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &n)
	case FormatYAML:
		err = yaml.Unmarshal(data, &n)
	case FormatCBOR:
		err = cborDec.Unmarshal(data, &n)
	default:
		return nil, fmt.Errorf("unmarshal tree: unknown format %v", f)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	e, err := fromTreeNode(n)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", atPath(err, n.Name))
	}
	return e, nil
}

func toTreeNode(e *Element) treeNode {
	n := treeNode{Name: e.Name}
	for _, attr := range e.Attrs {
		n.Attrs = append(n.Attrs, treeAttr{
			Name:  attr.Name,
			Kind:  attr.Value.Kind().String(),
			Value: valueText(attr.Value),
			Raw:   rawPayload(attr.Value),
		})
	}
	for _, c := range e.Children {
		n.Children = append(n.Children, toTreeNode(c))
	}
	return n
}

func fromTreeNode(n treeNode) (*Element, error) {
	e := &Element{Name: n.Name}
	for _, a := range n.Attrs {
		v, err := parseValue(a)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		e.Attrs = append(e.Attrs, Attr{Name: a.Name, Value: v})
	}
	for i, c := range n.Children {
		child, err := fromTreeNode(c)
		if err != nil {
			return nil, atPath(err, segment(c.Name, i))
		}
		e.Children = append(e.Children, child)
	}
	return e, nil
}

// valueText is the payload as text: decimal for numbers, the shortest
// exact form for floats, raw bytes for strings.
func valueText(v Value) string {
	switch {
	case v.kind == KindBool:
		return strconv.FormatBool(v.num != 0)
	case v.kind.IsInt():
		return strconv.FormatInt(int64(v.num), 10)
	case v.kind == KindFloat32:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	default:
		return strings.ToValidUTF8(v.str, "\uFFFD")
	}
}

// rawPayload returns the hex payload for values valueText cannot carry,
// or "".
func rawPayload(v Value) string {
	switch v.kind {
	case KindBool:
		if v.num > 1 {
			return hex.EncodeToString([]byte{uint8(v.num)})
		}
	case KindFloat32:
		if math.IsNaN(float64(v.f)) {
			return hex.EncodeToString(binary.LittleEndian.AppendUint32(nil, math.Float32bits(v.f)))
		}
	case KindInterned, KindLiteral:
		if !utf8.ValidString(v.str) {
			return hex.EncodeToString([]byte(v.str))
		}
	case KindRLE:
		if pairs := v.runPairs(); !rle.Canonical(pairs) || !utf8.ValidString(v.str) {
			return hex.EncodeToString(pairs)
		}
	}
	return ""
}

func parseValue(a treeAttr) (Value, error) {
	if a.Raw == "" {
		return parseValueText(a.Kind, a.Value)
	}
	k, ok := ParseKind(a.Kind)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownTypeTag, a.Kind)
	}
	b, err := hex.DecodeString(a.Raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: raw payload: %v", ErrInvalidEncoding, err)
	}
	switch {
	case k == KindBool && len(b) == 1:
		return Value{kind: KindBool, num: int32(b[0])}, nil
	case k == KindFloat32 && len(b) == 4:
		return Float32(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case k == KindInterned || k == KindLiteral:
		return StringOfKind(k, string(b)), nil
	case k == KindRLE:
		v, err := rleFromPairs(b)
		if err != nil {
			return Value{}, fmt.Errorf("%w: raw payload: %w", ErrInvalidEncoding, err)
		}
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: %d raw bytes for %s", ErrTypeMismatch, len(b), k)
}

func parseValueText(kind, text string) (Value, error) {
	k, ok := ParseKind(kind)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownTypeTag, kind)
	}
	switch k {
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Bool(b), nil
	case KindUInt8:
		n, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return UInt8(uint8(n)), nil
	case KindInt16:
		n, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Int16(int16(n)), nil
	case KindInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Int32(int32(n)), nil
	case KindFloat32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Float32(float32(f)), nil
	default:
		return StringOfKind(k, text), nil
	}
}
