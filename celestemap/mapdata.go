package celestemap

import (
	"fmt"
)

// Root section element names.
const (
	sectionLevels = "levels"
	sectionFiller = "Filler"
	sectionStyle  = "Style"
)

var mapSections = []string{sectionFiller, sectionStyle, sectionLevels}

// Map is a whole map document in typed form.
//
// A Map produced by Load keeps the string table and child order it was
// read with, so storing it unmodified reproduces the input exactly.
type Map struct {
	Package string
	Attrs   Attributes
	Levels  []*Level
	Fillers []*Rect

	// Style holds the raw parallax styleground tree.
	Style *Element

	// Extra holds root children without a typed field.
	Extra []*Element

	layout   []string
	sections map[string]Attributes
	strings  *StringTable
}

// NewMap creates an empty map with empty styleground lists.
func NewMap(pkg string) *Map {
	return &Map{
		Package: pkg,
		Style:   NewElement(sectionStyle, NewElement("Foregrounds"), NewElement("Backgrounds")),
	}
}

// Level returns the level with the given name, or nil.
func (m *Map) Level(name string) *Level {
	for _, l := range m.Levels {
		if l.Name() == name {
			return l
		}
	}
	return nil
}

// Foregrounds returns the foreground styleground elements.
func (m *Map) Foregrounds() []*Element {
	return m.styleList("Foregrounds")
}

// Backgrounds returns the background styleground elements.
func (m *Map) Backgrounds() []*Element {
	return m.styleList("Backgrounds")
}

func (m *Map) styleList(name string) []*Element {
	if m.Style == nil {
		return nil
	}
	if el := m.Style.Child(name); el != nil {
		return el.Children
	}
	return nil
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := &Map{
		Package: m.Package,
		Attrs:   m.Attrs.Clone(),
		Style:   m.Style.Clone(),
		Extra:   cloneElements(m.Extra),
		layout:  append([]string(nil), m.layout...),
	}
	for _, l := range m.Levels {
		out.Levels = append(out.Levels, l.Clone())
	}
	for _, r := range m.Fillers {
		out.Fillers = append(out.Fillers, &Rect{Attrs: r.Attrs.Clone(), Children: cloneElements(r.Children)})
	}
	if m.sections != nil {
		out.sections = make(map[string]Attributes, len(m.sections))
		for name, attrs := range m.sections {
			out.sections[name] = attrs.Clone()
		}
	}
	if m.strings != nil {
		out.strings = m.strings.Clone()
	}
	return out
}

// ============================================================
// Mapping
// ============================================================

// FromDocument projects a decoded document onto the typed model. Tile
// grids may use as much memory as Decode would allow for the encoded
// document. Failures are *DecodeError with stage StageMapping.
func FromDocument(d *Document, opts ...Option) (*Map, error) {
	c := newConfig(opts)
	if d.Root != nil {
		c.tiles = newTileBudget(encodedSize(d.Root))
	}
	m, err := mapFromDocument(d, c)
	if err != nil {
		return nil, newDecodeError(StageMapping, err)
	}
	return m, nil
}

func mapFromDocument(d *Document, c *config) (*Map, error) {
	root := d.Root
	if root == nil || root.Name != "Map" {
		name := ""
		if root != nil {
			name = root.Name
		}
		return nil, fmt.Errorf("%w: root is %q, want Map", ErrUnexpectedElement, name)
	}

	m := &Map{
		Package:  d.Package,
		Attrs:    root.Attrs.Clone(),
		sections: make(map[string]Attributes),
	}
	if d.Strings != nil {
		m.strings = d.Strings.Clone()
	}
	for i, child := range root.Children {
		if _, seen := m.sections[child.Name]; seen || !isMapSection(child.Name) {
			m.Extra = append(m.Extra, child.Clone())
			m.layout = append(m.layout, "")
			continue
		}
		if err := m.readSection(child, c); err != nil {
			return nil, atPath(atPath(err, segment(child.Name, i)), root.Name)
		}
		m.sections[child.Name] = child.Attrs.Clone()
		m.layout = append(m.layout, child.Name)
	}
	return m, nil
}

func isMapSection(name string) bool {
	return name == sectionLevels || name == sectionFiller || name == sectionStyle
}

func (m *Map) readSection(child *Element, c *config) error {
	switch child.Name {
	case sectionLevels:
		m.Levels = make([]*Level, 0, len(child.Children))
		for i, el := range child.Children {
			l, err := levelFromElement(el, c)
			if err != nil {
				return atPath(err, segment(el.Name, i))
			}
			c.logger.Debug("mapped level", "name", l.Name(), "entities", len(l.Entities), "extra", len(l.Extra))
			m.Levels = append(m.Levels, l)
		}
	case sectionFiller:
		m.Fillers = make([]*Rect, 0, len(child.Children))
		for i, el := range child.Children {
			r, err := rectFromElement(el)
			if err != nil {
				return atPath(err, segment(el.Name, i))
			}
			m.Fillers = append(m.Fillers, r)
		}
	case sectionStyle:
		m.Style = child.Clone()
	}
	return nil
}

// ToDocument rebuilds the generic document. The map is not modified and
// the returned tree shares no elements with it.
// Failures are *EncodeError with stage StageMapping.
func (m *Map) ToDocument(opts ...Option) (*Document, error) {
	c := newConfig(opts)
	root, err := m.element()
	if err != nil {
		return nil, newEncodeError(StageMapping, err)
	}
	// Sections and extras are shared with m inside element.
	d := &Document{Package: m.Package, Root: root.Clone()}
	if m.strings != nil && !c.freshStrings {
		d.Strings = m.strings.Clone()
	}
	return d, nil
}

func (m *Map) element() (*Element, error) {
	layout := append([]string(nil), m.layout...)
	placed := make(map[string]bool, len(layout))
	for _, name := range layout {
		placed[name] = true
	}
	for _, name := range mapSections {
		if !placed[name] && (m.sections == nil || m.hasData(name)) {
			layout = append(layout, name)
		}
	}

	root := &Element{Name: "Map", Attrs: m.Attrs.Clone(), Children: make([]*Element, 0, len(layout)+len(m.Extra))}
	extra := 0
	for _, name := range layout {
		if name == "" {
			if extra < len(m.Extra) {
				root.Children = append(root.Children, m.Extra[extra])
				extra++
			}
			continue
		}
		el, err := m.section(name)
		if err != nil {
			return nil, atPath(atPath(err, name), root.Name)
		}
		if el != nil {
			root.Children = append(root.Children, el)
		}
	}
	root.Children = append(root.Children, m.Extra[extra:]...)
	return root, nil
}

func (m *Map) hasData(name string) bool {
	switch name {
	case sectionLevels:
		return len(m.Levels) > 0
	case sectionFiller:
		return len(m.Fillers) > 0
	case sectionStyle:
		return m.Style != nil
	}
	return false
}

func (m *Map) section(name string) (*Element, error) {
	switch name {
	case sectionStyle:
		return m.Style, nil
	case sectionFiller:
		el := &Element{Name: name, Attrs: m.sections[name].Clone()}
		for _, r := range m.Fillers {
			el.Children = append(el.Children, r.element())
		}
		return el, nil
	default:
		el := &Element{Name: name, Attrs: m.sections[name].Clone()}
		for i, l := range m.Levels {
			child, err := l.element()
			if err != nil {
				return nil, atPath(err, segment("level", i))
			}
			el.Children = append(el.Children, child)
		}
		return el, nil
	}
}
