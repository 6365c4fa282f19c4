package celestemap

import (
	"encoding/hex"
	"fmt"
	"image/color"
)

// Point is a position in pixels.
type Point struct {
	X, Y float32
}

// ============================================================
// Entity
// ============================================================

// Entity is an entity or trigger placed in a level. Its kind is the
// element name; all other data lives in Attrs and Children, which the
// accessors read and write in place.
type Entity struct {
	Name     string
	Attrs    Attributes
	Children []*Element
}

// NewEntity creates an entity at (x, y).
func NewEntity(name string, id int32, x, y float32) *Entity {
	e := &Entity{Name: name}
	e.Attrs.SetInt("id", id)
	e.SetPosition(x, y)
	return e
}

func entityFromElement(el *Element) (*Entity, error) {
	if err := checkNumber(el.Attrs, "x", "y", "width", "height", "originX", "originY", "id"); err != nil {
		return nil, err
	}
	return &Entity{Name: el.Name, Attrs: el.Attrs.Clone(), Children: cloneElements(el.Children)}, nil
}

func (e *Entity) element() *Element {
	return &Element{Name: e.Name, Attrs: e.Attrs.Clone(), Children: e.Children}
}

// ID returns the editor-assigned id, 0 when absent.
func (e *Entity) ID() int32 { return e.Attrs.Int("id", 0) }

// Position returns the entity position.
func (e *Entity) Position() Point {
	return Point{X: e.Attrs.Float("x", 0), Y: e.Attrs.Float("y", 0)}
}

// SetPosition moves the entity.
func (e *Entity) SetPosition(x, y float32) {
	e.Attrs.SetFloat("x", x)
	e.Attrs.SetFloat("y", y)
}

// Width returns the width attribute if present.
func (e *Entity) Width() (int32, bool) {
	if !e.Attrs.Has("width") {
		return 0, false
	}
	return e.Attrs.Int("width", 0), true
}

// Height returns the height attribute if present.
func (e *Entity) Height() (int32, bool) {
	if !e.Attrs.Has("height") {
		return 0, false
	}
	return e.Attrs.Int("height", 0), true
}

// SetSize sets width and height.
func (e *Entity) SetSize(width, height int32) {
	e.Attrs.SetInt("width", width)
	e.Attrs.SetInt("height", height)
}

// Origin returns the originX and originY attributes.
func (e *Entity) Origin() Point {
	return Point{X: e.Attrs.Float("originX", 0), Y: e.Attrs.Float("originY", 0)}
}

// Nodes returns the positions of the "node" children.
func (e *Entity) Nodes() []Point {
	var nodes []Point
	for _, c := range e.Children {
		if c.Name == "node" {
			nodes = append(nodes, Point{X: c.Attrs.Float("x", 0), Y: c.Attrs.Float("y", 0)})
		}
	}
	return nodes
}

// SetNodes replaces the node list. Existing node elements are updated in
// place; surplus ones are removed and new ones appended.
func (e *Entity) SetNodes(nodes []Point) {
	children := make([]*Element, 0, len(e.Children)+len(nodes))
	i := 0
	for _, c := range e.Children {
		if c.Name != "node" {
			children = append(children, c)
			continue
		}
		if i >= len(nodes) {
			continue
		}
		n := c.Clone()
		n.Attrs.SetFloat("x", nodes[i].X)
		n.Attrs.SetFloat("y", nodes[i].Y)
		children = append(children, n)
		i++
	}
	for ; i < len(nodes); i++ {
		n := NewElement("node")
		n.Attrs.SetFloat("x", nodes[i].X)
		n.Attrs.SetFloat("y", nodes[i].Y)
		children = append(children, n)
	}
	e.Children = children
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	return &Entity{Name: e.Name, Attrs: e.Attrs.Clone(), Children: cloneElements(e.Children)}
}

// ============================================================
// Decal
// ============================================================

// Decal is a textured sprite in a level's foreground or background.
type Decal struct {
	Attrs    Attributes
	Children []*Element
}

// NewDecal creates a decal at (x, y) with unit scale.
func NewDecal(texture string, x, y float32) *Decal {
	d := &Decal{}
	d.SetPosition(x, y)
	d.Attrs.SetFloat("scaleX", 1)
	d.Attrs.SetFloat("scaleY", 1)
	d.Attrs.SetString("texture", texture)
	return d
}

func decalFromElement(el *Element) (*Decal, error) {
	if el.Name != "decal" {
		return nil, fmt.Errorf("%w: %q, want decal", ErrUnexpectedElement, el.Name)
	}
	if _, err := requireString(el.Attrs, "texture"); err != nil {
		return nil, err
	}
	if err := checkNumber(el.Attrs, "x", "y", "scaleX", "scaleY", "rotation", "depth"); err != nil {
		return nil, err
	}
	if err := checkString(el.Attrs, "color"); err != nil {
		return nil, err
	}
	return &Decal{Attrs: el.Attrs.Clone(), Children: cloneElements(el.Children)}, nil
}

func (d *Decal) element() *Element {
	return &Element{Name: "decal", Attrs: d.Attrs.Clone(), Children: d.Children}
}

// Texture returns the texture path.
func (d *Decal) Texture() string { return d.Attrs.String("texture", "") }

// SetTexture changes the texture path.
func (d *Decal) SetTexture(texture string) { d.Attrs.SetString("texture", texture) }

// Position returns the decal position.
func (d *Decal) Position() Point {
	return Point{X: d.Attrs.Float("x", 0), Y: d.Attrs.Float("y", 0)}
}

// SetPosition moves the decal.
func (d *Decal) SetPosition(x, y float32) {
	d.Attrs.SetFloat("x", x)
	d.Attrs.SetFloat("y", y)
}

// Scale returns scaleX and scaleY, 1 when absent.
func (d *Decal) Scale() Point {
	return Point{X: d.Attrs.Float("scaleX", 1), Y: d.Attrs.Float("scaleY", 1)}
}

// Rotation returns the rotation in degrees.
func (d *Decal) Rotation() float32 { return d.Attrs.Float("rotation", 0) }

// Depth returns the draw depth.
func (d *Decal) Depth() int32 { return d.Attrs.Int("depth", 0) }

// Color returns the tint, opaque white when absent. The attribute holds
// hex digits as rrggbb or rrggbbaa.
func (d *Decal) Color() (color.NRGBA, error) {
	s, ok := d.Attrs.Get("color")
	if !ok {
		return color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, nil
	}
	text, _ := s.AsString()
	return parseHexColor(text)
}

// SetColor sets the tint, leaving out the alpha digits when opaque.
func (d *Decal) SetColor(c color.NRGBA) {
	d.Attrs.SetString("color", formatHexColor(c))
}

// Clone returns a deep copy.
func (d *Decal) Clone() *Decal {
	return &Decal{Attrs: d.Attrs.Clone(), Children: cloneElements(d.Children)}
}

func parseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q, want rrggbb or rrggbbaa", ErrTypeMismatch, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q: %v", ErrTypeMismatch, s, err)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xFF}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

func formatHexColor(c color.NRGBA) string {
	b := []byte{c.R, c.G, c.B}
	if c.A != 0xFF {
		b = append(b, c.A)
	}
	return hex.EncodeToString(b)
}

// ============================================================
// Rect
// ============================================================

// Rect is a filler rectangle, in tiles.
type Rect struct {
	Attrs    Attributes
	Children []*Element
}

// NewRect creates a filler rectangle.
func NewRect(x, y, w, h int32) *Rect {
	r := &Rect{}
	r.Set(x, y, w, h)
	return r
}

func rectFromElement(el *Element) (*Rect, error) {
	if el.Name != "rect" {
		return nil, fmt.Errorf("%w: %q, want rect", ErrUnexpectedElement, el.Name)
	}
	for _, name := range []string{"x", "y", "w", "h"} {
		if _, err := requireInt(el.Attrs, name); err != nil {
			return nil, err
		}
	}
	return &Rect{Attrs: el.Attrs.Clone(), Children: cloneElements(el.Children)}, nil
}

func (r *Rect) element() *Element {
	return &Element{Name: "rect", Attrs: r.Attrs.Clone(), Children: r.Children}
}

// Bounds returns position and size.
func (r *Rect) Bounds() (x, y, w, h int32) {
	return r.Attrs.Int("x", 0), r.Attrs.Int("y", 0), r.Attrs.Int("w", 0), r.Attrs.Int("h", 0)
}

// Set changes position and size.
func (r *Rect) Set(x, y, w, h int32) {
	r.Attrs.SetInt("x", x)
	r.Attrs.SetInt("y", y)
	r.Attrs.SetInt("w", w)
	r.Attrs.SetInt("h", h)
}

func cloneElements(els []*Element) []*Element {
	if els == nil {
		return nil
	}
	out := make([]*Element, len(els))
	for i, e := range els {
		out[i] = e.Clone()
	}
	return out
}
