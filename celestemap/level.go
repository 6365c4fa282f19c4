package celestemap

import (
	"fmt"
)

// Level section element names.
const (
	sectionEntities   = "entities"
	sectionTriggers   = "triggers"
	sectionFgDecals   = "fgdecals"
	sectionBgDecals   = "bgdecals"
	sectionBackground = "bg"
	sectionSolids     = "solids"

	// tileText is the attribute holding a grid's text.
	tileText = "innerText"
)

var levelSections = []string{
	sectionEntities, sectionTriggers, sectionBgDecals, sectionFgDecals,
	sectionBackground, sectionSolids,
}

// Level is one room of a map. Its bounds are the name, x, y, width and
// height attributes, in pixels; other attributes are kept as they are.
type Level struct {
	Attrs      Attributes
	Entities   []*Entity
	Triggers   []*Entity
	FgDecals   []*Decal
	BgDecals   []*Decal
	Solids     *Tilemap
	Background *Tilemap

	// Extra holds children without a typed field, such as the tile ID
	// layers, in their original order.
	Extra []*Element

	layout   []string
	sections map[string]Attributes
}

// NewLevel creates an empty level of width x height tiles at (0, 0).
func NewLevel(name string, width, height int) (*Level, error) {
	if width < 0 || height < 0 || width*TileSize > 1<<31-1 || height*TileSize > 1<<31-1 {
		return nil, fmt.Errorf("%w: level size %dx%d", ErrOutOfBounds, width, height)
	}
	l := &Level{}
	l.Attrs.SetString("name", name)
	l.Attrs.SetInt("x", 0)
	l.Attrs.SetInt("y", 0)
	l.Attrs.SetInt("width", int32(width*TileSize))
	l.Attrs.SetInt("height", int32(height*TileSize))
	var err error
	if l.Solids, err = NewTilemap(width, height); err != nil {
		return nil, err
	}
	l.Background, _ = NewTilemap(width, height)
	return l, nil
}

// Name returns the level name.
func (l *Level) Name() string { return l.Attrs.String("name", "") }

// SetName renames the level.
func (l *Level) SetName(name string) { l.Attrs.SetString("name", name) }

// Bounds returns position and size in pixels.
func (l *Level) Bounds() (x, y, width, height int32) {
	return l.Attrs.Int("x", 0), l.Attrs.Int("y", 0), l.Attrs.Int("width", 0), l.Attrs.Int("height", 0)
}

// SetPosition moves the level.
func (l *Level) SetPosition(x, y int32) {
	l.Attrs.SetInt("x", x)
	l.Attrs.SetInt("y", y)
}

// SetBounds moves and resizes the level. Every tile layer is resized to
// the new size in tiles.
func (l *Level) SetBounds(x, y, width, height int32) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: level size %dx%d", ErrOutOfBounds, width, height)
	}
	if err := l.resizeLayers(int(width/TileSize), int(height/TileSize)); err != nil {
		return err
	}
	l.SetPosition(x, y)
	l.Attrs.SetInt("width", width)
	l.Attrs.SetInt("height", height)
	return nil
}

// TileSize returns the level size in tiles.
func (l *Level) TileSize() (width, height int) {
	_, _, w, h := l.Bounds()
	return int(w / TileSize), int(h / TileSize)
}

// Resize changes the level size to width x height tiles, resizing every
// tile layer.
func (l *Level) Resize(width, height int) error {
	if width < 0 || height < 0 || width*TileSize > 1<<31-1 || height*TileSize > 1<<31-1 {
		return fmt.Errorf("%w: level size %dx%d", ErrOutOfBounds, width, height)
	}
	if err := l.resizeLayers(width, height); err != nil {
		return err
	}
	l.Attrs.SetInt("width", int32(width*TileSize))
	l.Attrs.SetInt("height", int32(height*TileSize))
	return nil
}

func (l *Level) resizeLayers(width, height int) error {
	for _, m := range []*Tilemap{l.Solids, l.Background} {
		if m == nil {
			continue
		}
		if err := m.Resize(width, height); err != nil {
			return err
		}
	}
	for _, layer := range []string{LayerBgTiles, LayerFgTiles, LayerObjTiles} {
		if l.tileLayer(layer) == nil {
			continue
		}
		grid, err := l.TileIDs(layer)
		if err != nil {
			return err
		}
		l.setTileText(layer, renderTileIDs(resizeTileIDs(grid, width, height)))
	}
	return nil
}

// TileIDs returns a tile ID layer as rows of tileset indices, NoTile for
// empty cells. A missing layer reads as all NoTile.
func (l *Level) TileIDs(layer string) ([][]int32, error) {
	w, h := l.TileSize()
	el := l.tileLayer(layer)
	if el == nil {
		return newTileIDs(w, h), nil
	}
	text := ""
	if v, ok := el.Attrs.Get(tileText); ok {
		s, ok := v.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: %s tile data is %s, want string", ErrTypeMismatch, layer, v.Kind())
		}
		text = s
	}
	return parseTileIDs(text, w, h), nil
}

// SetTileIDs replaces a tile ID layer. The grid must match the level
// size in tiles.
func (l *Level) SetTileIDs(layer string, grid [][]int32) error {
	w, h := l.TileSize()
	if len(grid) != h {
		return fmt.Errorf("%w: %s has %d rows, want %d", ErrMalformedTilemap, layer, len(grid), h)
	}
	for y, row := range grid {
		if len(row) != w {
			return fmt.Errorf("%w: %s row %d is %d tiles wide, want %d", ErrMalformedTilemap, layer, y, len(row), w)
		}
	}
	l.setTileText(layer, renderTileIDs(grid))
	return nil
}

func (l *Level) tileLayer(layer string) *Element {
	for _, el := range l.Extra {
		if el.Name == layer {
			return el
		}
	}
	return nil
}

func (l *Level) setTileText(layer, text string) {
	el := l.tileLayer(layer)
	if el == nil {
		el = NewElement(layer)
		l.Extra = append(l.Extra, el)
	}
	el.Attrs.SetString(tileText, text)
}

// Entity returns the entity with the given id, or nil.
func (l *Level) Entity(id int32) *Entity {
	for _, e := range l.Entities {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Clone returns a deep copy.
func (l *Level) Clone() *Level {
	out := &Level{
		Attrs:  l.Attrs.Clone(),
		Extra:  cloneElements(l.Extra),
		layout: append([]string(nil), l.layout...),
	}
	if l.sections != nil {
		out.sections = make(map[string]Attributes, len(l.sections))
	}
	for _, e := range l.Entities {
		out.Entities = append(out.Entities, e.Clone())
	}
	for _, e := range l.Triggers {
		out.Triggers = append(out.Triggers, e.Clone())
	}
	for _, d := range l.FgDecals {
		out.FgDecals = append(out.FgDecals, d.Clone())
	}
	for _, d := range l.BgDecals {
		out.BgDecals = append(out.BgDecals, d.Clone())
	}
	if l.Solids != nil {
		out.Solids = l.Solids.Clone()
	}
	if l.Background != nil {
		out.Background = l.Background.Clone()
	}
	for name, attrs := range l.sections {
		out.sections[name] = attrs.Clone()
	}
	return out
}

// ============================================================
// Mapping
// ============================================================

func levelFromElement(el *Element, c *config) (*Level, error) {
	if el.Name != "level" {
		return nil, fmt.Errorf("%w: %q, want level", ErrUnexpectedElement, el.Name)
	}
	if _, err := requireString(el.Attrs, "name"); err != nil {
		return nil, err
	}
	var size [2]int32
	for i, name := range []string{"x", "y", "width", "height"} {
		n, err := requireInt(el.Attrs, name)
		if err != nil {
			return nil, err
		}
		if i >= 2 {
			size[i-2] = n
		}
	}
	if size[0] < 0 || size[1] < 0 {
		return nil, fmt.Errorf("%w: level size %dx%d is negative", ErrMalformedTilemap, size[0], size[1])
	}
	tw, th := int(size[0]/TileSize), int(size[1]/TileSize)

	l := &Level{Attrs: el.Attrs.Clone(), sections: make(map[string]Attributes)}
	for i, child := range el.Children {
		if !l.isSection(child) {
			l.Extra = append(l.Extra, child.Clone())
			l.layout = append(l.layout, "")
			continue
		}
		if err := l.readSection(child, tw, th, c); err != nil {
			return nil, atPath(err, segment(child.Name, i))
		}
		l.sections[child.Name] = child.Attrs.Clone()
		l.layout = append(l.layout, child.Name)
	}
	var err error
	if l.Solids == nil {
		if l.Solids, err = NewTilemap(tw, th); err != nil {
			return nil, err
		}
	}
	if l.Background == nil {
		if l.Background, err = NewTilemap(tw, th); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// isSection reports whether child is the first occurrence of a typed
// section. Tile sections with children are left untyped.
func (l *Level) isSection(child *Element) bool {
	switch child.Name {
	case sectionEntities, sectionTriggers, sectionFgDecals, sectionBgDecals:
	case sectionBackground, sectionSolids:
		if len(child.Children) > 0 {
			return false
		}
	default:
		return false
	}
	_, seen := l.sections[child.Name]
	return !seen
}

func (l *Level) readSection(child *Element, tw, th int, c *config) error {
	switch child.Name {
	case sectionEntities, sectionTriggers:
		list := make([]*Entity, 0, len(child.Children))
		for i, e := range child.Children {
			entity, err := entityFromElement(e)
			if err != nil {
				return atPath(err, segment(e.Name, i))
			}
			list = append(list, entity)
		}
		if child.Name == sectionEntities {
			l.Entities = list
		} else {
			l.Triggers = list
		}
	case sectionFgDecals, sectionBgDecals:
		list := make([]*Decal, 0, len(child.Children))
		for i, e := range child.Children {
			decal, err := decalFromElement(e)
			if err != nil {
				return atPath(err, segment(e.Name, i))
			}
			list = append(list, decal)
		}
		if child.Name == sectionFgDecals {
			l.FgDecals = list
		} else {
			l.BgDecals = list
		}
	default:
		m, err := NewTilemap(tw, th)
		if err != nil {
			return err
		}
		if v, ok := child.Attrs.Get(tileText); ok {
			if m, err = tilemapFromValue(v, tw, th, c.trimmedRows, c.tiles); err != nil {
				return err
			}
		}
		if child.Name == sectionSolids {
			l.Solids = m
		} else {
			l.Background = m
		}
	}
	return nil
}

// element rebuilds the level element. Sections keep their recorded
// position. Sections a loaded level did not have are appended when they
// hold data; a level built in code writes all of them.
func (l *Level) element() (*Element, error) {
	tw, th := l.TileSize()
	for _, layer := range []struct {
		name string
		m    *Tilemap
	}{{sectionSolids, l.Solids}, {sectionBackground, l.Background}} {
		if layer.m != nil && (layer.m.Width() != tw || layer.m.Height() != th) {
			return nil, fmt.Errorf("%w: %s is %dx%d tiles, level is %dx%d",
				ErrMalformedTilemap, layer.name, layer.m.Width(), layer.m.Height(), tw, th)
		}
	}

	layout := append([]string(nil), l.layout...)
	placed := make(map[string]bool, len(layout))
	for _, name := range layout {
		placed[name] = true
	}
	for _, name := range levelSections {
		if !placed[name] && (l.sections == nil || l.hasData(name)) && l.hasSection(name) {
			layout = append(layout, name)
		}
	}

	el := &Element{Name: "level", Attrs: l.Attrs.Clone(), Children: make([]*Element, 0, len(layout)+len(l.Extra))}
	extra := 0
	for _, name := range layout {
		if name == "" {
			if extra < len(l.Extra) {
				el.Children = append(el.Children, l.Extra[extra])
				extra++
			}
			continue
		}
		if s := l.section(name); s != nil {
			el.Children = append(el.Children, s)
		}
	}
	el.Children = append(el.Children, l.Extra[extra:]...)
	return el, nil
}

func (l *Level) hasSection(name string) bool {
	switch name {
	case sectionSolids:
		return l.Solids != nil
	case sectionBackground:
		return l.Background != nil
	}
	return true
}

func (l *Level) hasData(name string) bool {
	switch name {
	case sectionEntities:
		return len(l.Entities) > 0
	case sectionTriggers:
		return len(l.Triggers) > 0
	case sectionFgDecals:
		return len(l.FgDecals) > 0
	case sectionBgDecals:
		return len(l.BgDecals) > 0
	case sectionSolids:
		return l.Solids != nil && !l.Solids.empty()
	case sectionBackground:
		return l.Background != nil && !l.Background.empty()
	}
	return false
}

func (l *Level) section(name string) *Element {
	el := &Element{Name: name, Attrs: l.sections[name].Clone()}
	switch name {
	case sectionEntities, sectionTriggers:
		list := l.Entities
		if name == sectionTriggers {
			list = l.Triggers
		}
		for _, e := range list {
			el.Children = append(el.Children, e.element())
		}
	case sectionFgDecals, sectionBgDecals:
		list := l.FgDecals
		if name == sectionBgDecals {
			list = l.BgDecals
		}
		for _, d := range list {
			el.Children = append(el.Children, d.element())
		}
	default:
		m := l.Solids
		if name == sectionBackground {
			m = l.Background
		}
		if m == nil {
			return nil
		}
		_, loaded := l.sections[name]
		if m.hasSource || !m.empty() || !loaded {
			el.Attrs.Set(tileText, m.value())
		}
	}
	return el
}
