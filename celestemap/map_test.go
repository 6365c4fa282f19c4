package celestemap

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Neumenon/celestemap/rle"
)

// ============================================================
// Scenario: one 8x8 level
// ============================================================

func TestDecode_Scenario(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Package != "test" {
		t.Errorf("Package = %q, want %q", m.Package, "test")
	}
	if len(m.Levels) != 1 {
		t.Fatalf("got %d levels, want 1", len(m.Levels))
	}

	l := m.Levels[0]
	if l.Name() != "a-00" {
		t.Errorf("Name() = %q", l.Name())
	}
	if w, h := l.TileSize(); w != 8 || h != 8 {
		t.Errorf("TileSize() = %dx%d, want 8x8", w, h)
	}

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := EmptyTile
			if y == 0 && x < 2 {
				want = '1'
			}
			got, err := l.Solids.Get(x, y)
			if err != nil {
				t.Fatalf("Get(%d, %d) failed: %v", x, y, err)
			}
			if got != want {
				t.Errorf("Get(%d, %d) = %q, want %q", x, y, got, want)
			}
		}
	}

	if len(l.Entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(l.Entities))
	}
	e := l.Entities[0]
	if e.Name != "spinner" {
		t.Errorf("entity name = %q", e.Name)
	}
	if p := e.Position(); p.X != 100 || p.Y != 200 {
		t.Errorf("Position() = %+v, want {100 200}", p)
	}
	if w, ok := e.Width(); !ok || w != 16 {
		t.Errorf("Width() = %d, %v, want 16, true", w, ok)
	}
	if _, ok := e.Height(); ok {
		t.Error("Height() reported a value for an entity without one")
	}
}

func TestRoundTrip_Scenario(t *testing.T) {
	doc := scenarioDoc()
	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Store(&buf, m); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), doc) {
		t.Errorf("round trip differs\ngot:  % x\nwant: % x", buf.Bytes(), doc)
	}
}

func TestRoundTrip_Idempotent(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := m.Levels[0].Solids.Set(4, 4, '3'); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	first, err := Encode(m)
	if err != nil {
		t.Fatalf("first Encode failed: %v", err)
	}
	second, err := Encode(m)
	if err != nil {
		t.Fatalf("second Encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same map twice gave different bytes")
	}

	again, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode of re-encoded map failed: %v", err)
	}
	third, err := Encode(again)
	if err != nil {
		t.Fatalf("third Encode failed: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Error("decode/encode of encoder output is not stable")
	}
}

func TestRoundTrip_StringTableDeterminism(t *testing.T) {
	doc := scenarioDoc()
	d, err := DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	m, err := FromDocument(d)
	if err != nil {
		t.Fatalf("FromDocument failed: %v", err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	d2, err := DecodeDocument(out)
	if err != nil {
		t.Fatalf("DecodeDocument of output failed: %v", err)
	}

	before, after := d.Strings.Strings(), d2.Strings.Strings()
	if strings.Join(before, "\x00") != strings.Join(after, "\x00") {
		t.Errorf("string table changed\nbefore: %q\nafter:  %q", before, after)
	}
	for i, s := range scenarioStrings {
		if got, _ := d2.Strings.Index(s); got != i {
			t.Errorf("index of %q = %d, want %d", s, got, i)
		}
	}
}

// ============================================================
// Mutation
// ============================================================

func TestStore_ChangedTileOnly(t *testing.T) {
	doc := scenarioDoc()
	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := m.Levels[0].Solids.Set(7, 7, '1'); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	text := []byte(scenarioSolids())
	text[len(text)-1] = '1'
	want := scenarioWithPairs(rle.Encode(text))
	if !bytes.Equal(out, want) {
		t.Errorf("unexpected bytes after editing one tile\ngot:  % x\nwant: % x", out, want)
	}

	reloaded, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode after edit failed: %v", err)
	}
	if tile, _ := reloaded.Levels[0].Solids.Get(7, 7); tile != '1' {
		t.Errorf("edited tile = %q, want '1'", tile)
	}
}

func TestStore_RotateLevel(t *testing.T) {
	doc := scenarioDoc()
	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m.Levels[0].Solids.Rotate180()
	rotated, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if bytes.Equal(rotated, doc) {
		t.Fatal("rotation did not change the document")
	}

	m2, err := Decode(rotated)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m2.Levels[0].Solids.Rotate180()
	back, err := Encode(m2)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(back, doc) {
		t.Error("rotating twice did not restore the original bytes")
	}
}

func TestStore_DoesNotMutate(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	l := m.Levels[0]
	l.Entities = append(l.Entities, NewEntity("strawberry", 7, 12, 34))
	l.FgDecals = append(l.FgDecals, NewDecal("decals/1-forsakencity/flag", 8, 8))
	layout := append([]string(nil), l.layout...)
	attrs := l.Attrs.Clone()

	if _, err := Encode(m); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Join(l.layout, ",") != strings.Join(layout, ",") {
		t.Errorf("layout changed to %q", l.layout)
	}
	if !l.Attrs.Equal(attrs) {
		t.Error("level attributes changed during Encode")
	}
}

func TestStore_AddedSectionsAppended(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m.Levels[0].FgDecals = []*Decal{NewDecal("decals/generic/grass_a", 16, 24)}
	if err := m.Levels[0].Background.Set(0, 0, 'b'); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	d, err := DecodeDocument(out)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}

	level := d.Root.Child("levels").Child("level")
	var names []string
	for _, c := range level.Children {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "entities,solids,fgdecals,bg" {
		t.Errorf("level children = %s", got)
	}
}

// ============================================================
// Preservation of unmodeled data
// ============================================================

func TestRoundTrip_UnknownDataPreserved(t *testing.T) {
	level := NewElement("level")
	level.Attrs = Attributes{
		{"musicLayer1", Bool(true)},
		{"name", Interned("lvl_1")},
		{"width", Int16(320)},
		{"c", UInt8(3)},
		{"height", Int16(184)},
		{"x", Int32(-70000)},
		{"y", Int16(-8)},
		{"c", UInt8(4)},
		{"windPattern", Literal("None")},
	}
	entities := NewElement("entities", &Element{
		Name: "zipMover",
		Attrs: Attributes{
			{"id", Int16(300)},
			{"x", Float32(12.5)},
			{"y", UInt8(8)},
			{"theme", Interned("Moon")},
		},
		Children: []*Element{
			{Name: "node", Attrs: Attributes{{"x", UInt8(40)}, {"y", UInt8(8)}}},
		},
	})
	entities.Attrs = Attributes{{"offsetX", UInt8(0)}}
	level.Append(
		&Element{Name: "fgtiles", Attrs: Attributes{{"tileset", Interned("Scenery")}, {"innerText", Literal("1,2,3")}}},
		entities,
		&Element{Name: "solids", Attrs: Attributes{{"innerText", RLE(strings.Repeat(strings.Repeat("0", 40)+"\n", 22) + strings.Repeat("1", 40))}}},
		NewElement("triggers"),
		&Element{Name: "bgdecals", Children: []*Element{{Name: "decal", Attrs: Attributes{
			{"x", Float32(1.5)}, {"texture", Literal("decals/4-cliffside/flower")}, {"scaleX", Int16(-1)}, {"color", Interned("ff00ff80")},
		}}}},
		NewElement("objtiles"),
	)
	root := NewElement("Map",
		&Element{Name: "Style", Attrs: Attributes{{"color", Interned("000000")}}, Children: []*Element{NewElement("Foregrounds"), NewElement("Backgrounds")}},
		&Element{Name: "meta", Attrs: Attributes{{"Icon", Literal("icon.png")}}},
		NewElement("levels", level),
		NewElement("Filler", &Element{Name: "rect", Attrs: Attributes{{"x", Int16(-400)}, {"y", UInt8(0)}, {"w", UInt8(10)}, {"h", UInt8(4)}}}),
	)
	root.Attrs = Attributes{{"_version", Literal("1.0")}}

	doc, err := EncodeDocument(&Document{Package: "pkg", Root: root})
	if err != nil {
		t.Fatalf("EncodeDocument failed: %v", err)
	}
	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, doc) {
		t.Fatalf("round trip differs\ngot:  % x\nwant: % x", out, doc)
	}

	l := m.Levels[0]
	if got := l.Attrs.Names(); strings.Join(got, ",") != "musicLayer1,name,width,c,height,x,y,c,windPattern" {
		t.Errorf("attribute order = %v", got)
	}
	if x, y, w, h := l.Bounds(); x != -70000 || y != -8 || w != 320 || h != 184 {
		t.Errorf("Bounds() = %d %d %d %d", x, y, w, h)
	}
	if n := l.Entities[0].Nodes(); len(n) != 1 || n[0] != (Point{40, 8}) {
		t.Errorf("Nodes() = %v", n)
	}
	c, err := l.BgDecals[0].Color()
	if err != nil || c.R != 0xFF || c.G != 0 || c.B != 0xFF || c.A != 0x80 {
		t.Errorf("Color() = %v, %v", c, err)
	}
	if got := m.Extra; len(got) != 1 || got[0].Name != "meta" {
		t.Errorf("Extra = %v", got)
	}
	if len(m.Fillers) != 1 {
		t.Fatalf("got %d fillers", len(m.Fillers))
	}
	if x, _, w, _ := m.Fillers[0].Bounds(); x != -400 || w != 10 {
		t.Errorf("filler Bounds() = %d, %d", x, w)
	}
}

func TestRoundTrip_SeededStringTable(t *testing.T) {
	// A table in an order first-use traversal would not produce, with an
	// entry nothing references.
	b := &docBuilder{}
	b.str(Header).str("p").table("unused", "levels", "Map")
	b.elem(2, 0).children(1)
	b.elem(1, 0).children(0)
	doc := b.bytes()

	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, doc) {
		t.Errorf("seeded table not reproduced\ngot:  % x\nwant: % x", out, doc)
	}

	fresh, err := Encode(m, WithFreshStringTable())
	if err != nil {
		t.Fatalf("Encode with fresh table failed: %v", err)
	}
	d, err := DecodeDocument(fresh)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	if got := strings.Join(d.Strings.Strings(), ","); got != "Map,levels" {
		t.Errorf("fresh table = %s, want Map,levels", got)
	}
}

// ============================================================
// Maps built in code
// ============================================================

func TestNewMap_EncodeDecode(t *testing.T) {
	m := NewMap("custom")
	l, err := NewLevel("start", 40, 23)
	if err != nil {
		t.Fatalf("NewLevel failed: %v", err)
	}
	if err := l.Solids.Fill('1'); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	player := NewEntity("player", 1, 16, 160)
	player.SetNodes([]Point{{24, 160}, {32.5, 160}})
	l.Entities = append(l.Entities, player)
	m.Levels = append(m.Levels, l)
	m.Fillers = append(m.Fillers, NewRect(0, 0, 4, 4))

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	d, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	var sections []string
	for _, c := range d.Root.Children {
		sections = append(sections, c.Name)
	}
	if got := strings.Join(sections, ","); got != "Filler,Style,levels" {
		t.Errorf("root children = %s", got)
	}
	var layers []string
	for _, c := range d.Root.Child("levels").Child("level").Children {
		layers = append(layers, c.Name)
	}
	if got := strings.Join(layers, ","); got != "entities,triggers,bgdecals,fgdecals,bg,solids" {
		t.Errorf("level children = %s", got)
	}
	if v, _ := d.Root.Child("levels").Child("level").Child("solids").Attrs.Get("innerText"); v.Kind() != KindRLE {
		t.Errorf("solids stored as %s, want rle", v.Kind())
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got := back.Level("start")
	if got == nil {
		t.Fatal("level start not found")
	}
	if !got.Solids.Equal(l.Solids) {
		t.Error("solids changed through encode/decode")
	}
	nodes := got.Entity(1).Nodes()
	if len(nodes) != 2 || nodes[1] != (Point{32.5, 160}) {
		t.Errorf("Nodes() = %v", nodes)
	}
	if v, _ := got.Entity(1).Children[1].Attrs.Get("x"); v.Kind() != KindFloat32 {
		t.Errorf("fractional node x stored as %s", v.Kind())
	}

	again, err := Encode(back)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("loaded map does not re-encode to the same bytes")
	}
}

func TestLevel_Resize(t *testing.T) {
	l, err := NewLevel("r", 4, 2)
	if err != nil {
		t.Fatalf("NewLevel failed: %v", err)
	}
	l.Solids.Set(3, 1, '7')
	if err := l.SetTileIDs(LayerFgTiles, [][]int32{{1, 2, -1, -1}, {-1, -1, -1, 5}}); err != nil {
		t.Fatalf("SetTileIDs failed: %v", err)
	}

	if err := l.Resize(5, 3); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if _, _, w, h := l.Bounds(); w != 40 || h != 24 {
		t.Errorf("Bounds() size = %dx%d, want 40x24", w, h)
	}
	if tile, _ := l.Solids.Get(3, 1); tile != '7' {
		t.Errorf("kept tile = %q", tile)
	}
	if tile, _ := l.Solids.Get(4, 2); tile != EmptyTile {
		t.Errorf("new tile = %q", tile)
	}
	ids, err := l.TileIDs(LayerFgTiles)
	if err != nil {
		t.Fatalf("TileIDs failed: %v", err)
	}
	if len(ids) != 3 || len(ids[0]) != 5 || ids[0][1] != 2 || ids[1][3] != 5 || ids[2][4] != NoTile {
		t.Errorf("TileIDs() = %v", ids)
	}

	if err := l.SetTileIDs(LayerFgTiles, [][]int32{{1}}); !errors.Is(err, ErrMalformedTilemap) {
		t.Errorf("expected ErrMalformedTilemap for wrong grid size, got %v", err)
	}
	if err := l.Resize(-1, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds for negative size, got %v", err)
	}
}

// ============================================================
// Decode failures
// ============================================================

func TestDecode_CorruptedStringCount(t *testing.T) {
	doc := scenarioDoc()
	doc[scenarioHeaderLen] = 0xFF
	doc[scenarioHeaderLen+1] = 0xFF

	_, err := Decode(doc)
	if !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Stage != StageStrings {
		t.Errorf("Stage = %s, want %s", de.Stage, StageStrings)
	}
	if de.Offset < int64(scenarioHeaderLen) || de.Offset >= int64(len(doc)) {
		t.Errorf("Offset = %d, outside the document", de.Offset)
	}
}

func TestDecode_ZeroRunLength(t *testing.T) {
	pairs := rle.Encode([]byte(scenarioSolids()))
	pairs[4] = 0 // the count of the first row delimiter
	doc := scenarioWithPairs(pairs)

	_, err := Decode(doc)
	if !errors.Is(err, ErrInvalidRunLength) {
		t.Fatalf("expected ErrInvalidRunLength, got %v", err)
	}
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Stage != StageTree {
			t.Errorf("Stage = %s, want %s", de.Stage, StageTree)
		}
		if !strings.HasSuffix(de.Path, "solids[1]") {
			t.Errorf("Path = %q, want it to end at solids[1]", de.Path)
		}
	}
}

func TestDecode_MalformedTilemap(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"short row", strings.Replace(scenarioSolids(), "11000000", "1100000", 1)},
		{"long row", strings.Replace(scenarioSolids(), "11000000", "110000000", 1)},
		{"missing row", scenarioSolids()[:len(scenarioSolids())-9]},
		{"extra row", scenarioSolids() + "\n00000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(scenarioWithPairs(rle.Encode([]byte(tt.text))))
			if !errors.Is(err, ErrMalformedTilemap) {
				t.Fatalf("expected ErrMalformedTilemap, got %v", err)
			}
			var de *DecodeError
			if errors.As(err, &de) && de.Stage != StageMapping {
				t.Errorf("Stage = %s, want %s", de.Stage, StageMapping)
			}
		})
	}
}

func TestDecode_TrimmedRows(t *testing.T) {
	trimmed := "11\n\n\n\n\n\n\n"
	doc := scenarioWithPairs(rle.Encode([]byte(trimmed)))

	if _, err := Decode(doc); !errors.Is(err, ErrMalformedTilemap) {
		t.Fatalf("strict decode: expected ErrMalformedTilemap, got %v", err)
	}

	m, err := Decode(doc, WithTrimmedRows())
	if err != nil {
		t.Fatalf("Decode with trimmed rows failed: %v", err)
	}
	if m.Levels[0].Solids.String() != scenarioSolids() {
		t.Errorf("padded grid =\n%s", m.Levels[0].Solids)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, doc) {
		t.Error("unmodified trimmed grid was not written back unchanged")
	}

	m.Levels[0].Solids.Set(2, 1, '5')
	out, err = Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := scenarioWithPairs(rle.Encode([]byte("11\n005\n\n\n\n\n\n")))
	if !bytes.Equal(out, want) {
		t.Errorf("modified trimmed grid not re-trimmed\ngot:  % x\nwant: % x", out, want)
	}
}

func TestDecode_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Element
		want  error
		path  string
	}{
		{
			name: "missing level width",
			build: func() *Element {
				l := NewElement("level")
				l.Attrs = Attributes{{"name", Interned("a")}, {"x", UInt8(0)}, {"y", UInt8(0)}, {"height", UInt8(8)}}
				return NewElement("Map", NewElement("levels", l))
			},
			want: ErrMissingAttribute,
			path: "Map/levels[0]/level[0]",
		},
		{
			name: "string level height",
			build: func() *Element {
				l := NewElement("level")
				l.Attrs = Attributes{{"name", Interned("a")}, {"x", UInt8(0)}, {"y", UInt8(0)}, {"width", UInt8(8)}, {"height", Interned("8")}}
				return NewElement("Map", NewElement("levels", l))
			},
			want: ErrTypeMismatch,
			path: "Map/levels[0]/level[0]",
		},
		{
			name: "string entity x",
			build: func() *Element {
				l := NewElement("level", NewElement("entities", &Element{Name: "spring", Attrs: Attributes{{"x", Literal("ten")}}}))
				l.Attrs = Attributes{{"name", Interned("a")}, {"x", UInt8(0)}, {"y", UInt8(0)}, {"width", UInt8(8)}, {"height", UInt8(8)}}
				return NewElement("Map", NewElement("levels", l))
			},
			want: ErrTypeMismatch,
			path: "Map/levels[0]/level[0]/entities[0]/spring[0]",
		},
		{
			name: "decal without texture",
			build: func() *Element {
				l := NewElement("level", NewElement("fgdecals", NewElement("decal")))
				l.Attrs = Attributes{{"name", Interned("a")}, {"x", UInt8(0)}, {"y", UInt8(0)}, {"width", UInt8(8)}, {"height", UInt8(8)}}
				return NewElement("Map", NewElement("levels", l))
			},
			want: ErrMissingAttribute,
			path: "Map/levels[0]/level[0]/fgdecals[0]/decal[0]",
		},
		{
			name: "filler with float",
			build: func() *Element {
				r := &Element{Name: "rect", Attrs: Attributes{{"x", UInt8(0)}, {"y", UInt8(0)}, {"w", Float32(1.5)}, {"h", UInt8(1)}}}
				return NewElement("Map", NewElement("Filler", r))
			},
			want: ErrTypeMismatch,
			path: "Map/Filler[0]/rect[0]",
		},
		{
			name:  "wrong root",
			build: func() *Element { return NewElement("Level") },
			want:  ErrUnexpectedElement,
		},
		{
			name: "non-level in levels",
			build: func() *Element {
				return NewElement("Map", NewElement("levels", NewElement("room")))
			},
			want: ErrUnexpectedElement,
			path: "Map/levels[0]/room[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := EncodeDocument(&Document{Package: "p", Root: tt.build()})
			if err != nil {
				t.Fatalf("EncodeDocument failed: %v", err)
			}
			_, err = Decode(doc)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Stage != StageMapping {
				t.Errorf("Stage = %s, want %s", de.Stage, StageMapping)
			}
			if de.Path != tt.path {
				t.Errorf("Path = %q, want %q", de.Path, tt.path)
			}
		})
	}
}

// ============================================================
// Encode failures
// ============================================================

func TestEncode_TilemapSizeMismatch(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := m.Levels[0].Solids.Resize(9, 8); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}

	var buf bytes.Buffer
	err = Store(&buf, m)
	if !errors.Is(err, ErrMalformedTilemap) {
		t.Fatalf("expected ErrMalformedTilemap, got %v", err)
	}
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EncodeError, got %T", err)
	}
	if ee.Stage != StageMapping || ee.Path != "Map/levels/level[0]" {
		t.Errorf("Stage = %s, Path = %q", ee.Stage, ee.Path)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written despite the error", buf.Len())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestStore_WriteError(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	err = Store(failingWriter{}, m)
	var ee *EncodeError
	if !errors.As(err, &ee) || ee.Stage != StageWrite {
		t.Errorf("expected write stage EncodeError, got %v", err)
	}
}

func TestLoad_ReadError(t *testing.T) {
	_, err := Load(errReader{})
	var de *DecodeError
	if !errors.As(err, &de) || de.Stage != StageRead {
		t.Errorf("expected read stage DecodeError, got %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestLoad_Reader(t *testing.T) {
	m, err := Load(bytes.NewReader(scenarioDoc()))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Levels[0].Name() != "a-00" {
		t.Errorf("level name = %q", m.Levels[0].Name())
	}
}

func TestToDocument_IsIndependent(t *testing.T) {
	m, err := Decode(scenarioDoc())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m.Style = NewElement("Style", NewElement("Foregrounds"))
	m.Levels[0].Entities[0].SetNodes([]Point{{X: 1, Y: 2}})
	m.Levels[0].Extra = append(m.Levels[0].Extra, NewElement("fgtiles"))
	m.Extra = append(m.Extra, NewElement("meta"))
	m.Fillers = append(m.Fillers, NewRect(0, 0, 4, 4))
	before, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	d, err := m.ToDocument()
	if err != nil {
		t.Fatalf("ToDocument failed: %v", err)
	}
	var all []*Element
	d.Root.Walk(func(e *Element) bool {
		all = append(all, e)
		return true
	})
	for _, e := range all[1:] {
		e.Name = "Mutated"
		e.Attrs.Set("x", Int(5))
		e.Children = append(e.Children, NewElement("added"))
	}

	if m.Style.Name != "Style" || len(m.Style.Children) != 1 {
		t.Errorf("Style changed through the document: %s", m.Style)
	}
	if nodes := m.Levels[0].Entities[0].Nodes(); len(nodes) != 1 || nodes[0] != (Point{X: 1, Y: 2}) {
		t.Errorf("entity nodes changed through the document: %+v", nodes)
	}
	after, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(after, before) {
		t.Error("editing the document changed the map")
	}
}

// hugeLevels returns a map document holding n levels of width x height
// pixels, none with tile sections, plus extra sections on each level.
func hugeLevels(t *testing.T, n int, width, height int32, sections ...*Element) []byte {
	t.Helper()
	levels := NewElement("levels")
	for i := 0; i < n; i++ {
		l := &Element{Name: "level", Attrs: Attributes{
			{"name", Interned("big-" + string(rune('a'+i)))},
			{"x", Int(0)}, {"y", Int(0)}, {"width", Int32(width)}, {"height", Int32(height)},
		}}
		for _, s := range sections {
			l.Children = append(l.Children, s.Clone())
		}
		levels.Append(l)
	}
	data, err := EncodeDocument(&Document{Package: "huge", Root: NewElement("Map", levels)})
	if err != nil {
		t.Fatalf("EncodeDocument failed: %v", err)
	}
	return data
}

func TestDecode_LargeEmptyLevels(t *testing.T) {
	data := hugeLevels(t, 8, 65536, 65536)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for _, l := range m.Levels {
		if w, h := l.Solids.Width(), l.Solids.Height(); w != 8192 || h != 8192 {
			t.Fatalf("solids are %dx%d, want 8192x8192", w, h)
		}
		if l.Solids.tiles != nil || l.Background.tiles != nil {
			t.Fatalf("level %s allocated tiles for empty layers", l.Name())
		}
	}

	l := m.Levels[0]
	if tile, err := l.Solids.Get(8191, 8191); err != nil || tile != EmptyTile {
		t.Errorf("Get = %q, %v, want EmptyTile", tile, err)
	}
	if err := l.Solids.Set(3, 4, EmptyTile); err != nil || l.Solids.tiles != nil {
		t.Errorf("setting an empty tile allocated the grid (err %v)", err)
	}

	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("large empty levels did not round trip")
	}
}

func TestDecode_TileBudget(t *testing.T) {
	solids := &Element{Name: "solids", Attrs: Attributes{{"innerText", Literal("1")}}}
	data := hugeLevels(t, 8, 65536, 65536, solids)

	_, err := Decode(data, WithTrimmedRows())
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Stage != StageMapping {
		t.Errorf("expected mapping stage DecodeError, got %v", err)
	}

	d, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	if _, err := FromDocument(d, WithTrimmedRows()); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("FromDocument: expected ErrLimitExceeded, got %v", err)
	}

	// A small trimmed grid fits comfortably.
	small := hugeLevels(t, 1, 320, 184, solids)
	m, err := Decode(small, WithTrimmedRows())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if tile, _ := m.Levels[0].Solids.Get(0, 0); tile != '1' {
		t.Errorf("Get(0, 0) = %q, want '1'", tile)
	}
}
