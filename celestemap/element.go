package celestemap

import (
	"strings"
)

// Element is a generic node of the map tree: a name, ordered attributes
// and ordered children. An element owns its attributes and children.
type Element struct {
	Name     string
	Attrs    Attributes
	Children []*Element
}

// NewElement creates an element with the given children.
func NewElement(name string, children ...*Element) *Element {
	return &Element{Name: name, Children: children}
}

// Child returns the first child named name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all children named name, in order.
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Append adds children at the end.
func (e *Element) Append(children ...*Element) {
	e.Children = append(e.Children, children...)
}

// Clone returns a deep copy.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{Name: e.Name, Attrs: e.Attrs.Clone()}
	if e.Children != nil {
		out.Children = make([]*Element, len(e.Children))
		for i, c := range e.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports whether two trees are identical, including attribute
// order and value kinds.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Name != o.Name || !e.Attrs.Equal(o.Attrs) || len(e.Children) != len(o.Children) {
		return false
	}
	for i := range e.Children {
		if !e.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Walk calls fn for e and every descendant in pre-order, which is also
// the order elements are written. Returning false skips the children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// String renders the tree as indented markup for inspection. Attribute
// values show their kind, e.g. <level name="a-00" width=320:i16>.
func (e *Element) String() string {
	var sb strings.Builder
	e.format(&sb, 0)
	return sb.String()
}

func (e *Element) format(sb *strings.Builder, depth int) {
	indent := strings.Repeat("\t", depth)
	sb.WriteString(indent)
	sb.WriteString("<")
	sb.WriteString(e.Name)
	for _, attr := range e.Attrs {
		sb.WriteString(" ")
		sb.WriteString(attr.Name)
		sb.WriteString("=")
		sb.WriteString(attr.Value.String())
		sb.WriteString(":")
		sb.WriteString(attr.Value.Kind().String())
	}
	if len(e.Children) == 0 {
		sb.WriteString(" />")
		return
	}
	sb.WriteString(">")
	for _, c := range e.Children {
		sb.WriteString("\n")
		c.format(sb, depth+1)
	}
	sb.WriteString("\n")
	sb.WriteString(indent)
	sb.WriteString("</")
	sb.WriteString(e.Name)
	sb.WriteString(">")
}
