package celestemap

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/Neumenon/celestemap/rle"
	"github.com/Neumenon/celestemap/wire"
)

// docBuilder assembles documents byte by byte, independent of the
// encoder under test.
type docBuilder struct {
	buf bytes.Buffer
}

func (b *docBuilder) u8(v uint8) *docBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *docBuilder) u16(v uint16) *docBuilder {
	b.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
	return b
}

func (b *docBuilder) raw(p []byte) *docBuilder {
	b.buf.Write(p)
	return b
}

func (b *docBuilder) str(s string) *docBuilder {
	b.buf.Write(wire.AppendUvarint(nil, len(s)))
	b.buf.WriteString(s)
	return b
}

func (b *docBuilder) table(strs ...string) *docBuilder {
	b.u16(uint16(len(strs)))
	for _, s := range strs {
		b.str(s)
	}
	return b
}

// elem writes an element header: name index, attribute count.
func (b *docBuilder) elem(name uint16, attrs uint8) *docBuilder {
	return b.u16(name).u8(attrs)
}

// children writes a child count.
func (b *docBuilder) children(n uint16) *docBuilder {
	return b.u16(n)
}

func (b *docBuilder) attrU8(name uint16, v uint8) *docBuilder {
	return b.u16(name).u8(uint8(KindUInt8)).u8(v)
}

func (b *docBuilder) attrInterned(name, idx uint16) *docBuilder {
	return b.u16(name).u8(uint8(KindInterned)).u16(idx)
}

func (b *docBuilder) attrRLE(name uint16, pairs []byte) *docBuilder {
	return b.u16(name).u8(uint8(KindRLE)).u16(uint16(len(pairs))).raw(pairs)
}

func (b *docBuilder) bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// String table of the scenario document, in first-use order.
var scenarioStrings = []string{
	"Map", "levels", "level", "name", "a-00", "x", "y", "width", "height",
	"entities", "spinner", "solids", "innerText",
}

const (
	sMap uint16 = iota
	sLevels
	sLevel
	sName
	sA00
	sX
	sY
	sWidth
	sHeight
	sEntities
	sSpinner
	sSolids
	sInnerText
)

// scenarioSolids is an 8x8 grid, all empty except two solid tiles at the
// start of the first row.
func scenarioSolids() string {
	rows := []string{"11000000"}
	for i := 1; i < 8; i++ {
		rows = append(rows, "00000000")
	}
	return strings.Join(rows, "\n")
}

// scenarioHeaderLen is the offset of the string table count.
var scenarioHeaderLen = len(wire.AppendUvarint(nil, len(Header))) + len(Header) + 1 + len("test")

// scenarioDoc is a map with package "test" and one 8x8 tile level
// holding a single entity {x: 100, y: 200, width: 16}.
func scenarioDoc() []byte {
	return scenarioWithPairs(rle.Encode([]byte(scenarioSolids())))
}

func scenarioWithPairs(pairs []byte) []byte {
	b := &docBuilder{}
	b.str(Header).str("test").table(scenarioStrings...)
	b.elem(sMap, 0).children(1)
	b.elem(sLevels, 0).children(1)
	b.elem(sLevel, 5).
		attrInterned(sName, sA00).
		attrU8(sX, 0).
		attrU8(sY, 0).
		attrU8(sWidth, 64).
		attrU8(sHeight, 64).
		children(2)
	b.elem(sEntities, 0).children(1)
	b.elem(sSpinner, 3).
		attrU8(sX, 100).
		attrU8(sY, 200).
		attrU8(sWidth, 16).
		children(0)
	b.elem(sSolids, 1).attrRLE(sInnerText, pairs).children(0)
	return b.bytes()
}
