package celestemap

import (
	"fmt"
)

// Attr is one named attribute.
type Attr struct {
	Name  string
	Value Value
}

// Attributes is an ordered attribute list. Order is the on-disk order;
// repeated names are kept as they were read.
type Attributes []Attr

// Get returns the first attribute named name.
func (a Attributes) Get(name string) (Value, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether an attribute named name exists.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set replaces the first attribute named name in place, or appends it.
func (a *Attributes) Set(name string, v Value) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Attr{Name: name, Value: v})
}

// Delete removes every attribute named name and reports whether any was
// present.
func (a *Attributes) Delete(name string) bool {
	out := (*a)[:0]
	found := false
	for _, attr := range *a {
		if attr.Name == name {
			found = true
			continue
		}
		out = append(out, attr)
	}
	*a = out
	return found
}

// Names returns attribute names in order.
func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for i, attr := range a {
		names[i] = attr.Name
	}
	return names
}

// Clone returns a copy that can be modified independently.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	copy(out, a)
	return out
}

// Equal reports whether both lists hold equal attributes in the same order.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// ============================================================
// Typed getters
// ============================================================

// Bool returns a boolean attribute, or def when absent or not a bool.
func (a Attributes) Bool(name string, def bool) bool {
	if v, ok := a.Get(name); ok {
		if b, ok := v.AsBool(); ok {
			return b
		}
	}
	return def
}

// Int returns an integer attribute, or def when absent. Floats are
// truncated.
func (a Attributes) Int(name string, def int32) int32 {
	if v, ok := a.Get(name); ok {
		if n, ok := v.AsInt(); ok {
			return n
		}
		if f, ok := v.AsFloat(); ok {
			return int32(f)
		}
	}
	return def
}

// Float returns a numeric attribute as float32, or def when absent.
func (a Attributes) Float(name string, def float32) float32 {
	if v, ok := a.Get(name); ok {
		if f, ok := v.AsNumber(); ok {
			return float32(f)
		}
	}
	return def
}

// String returns a string attribute, or def when absent.
func (a Attributes) String(name string, def string) string {
	if v, ok := a.Get(name); ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return def
}

// ============================================================
// Typed setters
// ============================================================

// SetInt stores n, keeping the existing integer width when possible.
func (a *Attributes) SetInt(name string, n int32) {
	old, _ := a.Get(name)
	a.Set(name, withInt(old, n))
}

// SetFloat stores f, keeping integer storage while f is integral and the
// attribute was not a float.
func (a *Attributes) SetFloat(name string, f float32) {
	old, _ := a.Get(name)
	a.Set(name, withNumber(old, f))
}

// SetString stores s, keeping the existing string kind.
func (a *Attributes) SetString(name string, s string) {
	old, _ := a.Get(name)
	a.Set(name, withString(old, s))
}

// SetBool stores b.
func (a *Attributes) SetBool(name string, b bool) {
	a.Set(name, Bool(b))
}

// ============================================================
// Schema checks used while mapping
// ============================================================

func requireValue(a Attributes, name string) (Value, error) {
	v, ok := a.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrMissingAttribute, name)
	}
	return v, nil
}

func requireInt(a Attributes, name string) (int32, error) {
	v, err := requireValue(a, name)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("%w: %q is %s, want integer", ErrTypeMismatch, name, v.Kind())
	}
	return n, nil
}

func requireString(a Attributes, name string) (string, error) {
	v, err := requireValue(a, name)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %q is %s, want string", ErrTypeMismatch, name, v.Kind())
	}
	return s, nil
}

// checkNumber accepts an absent attribute or any numeric kind.
func checkNumber(a Attributes, names ...string) error {
	for _, name := range names {
		v, ok := a.Get(name)
		if !ok {
			continue
		}
		if _, ok := v.AsNumber(); !ok {
			return fmt.Errorf("%w: %q is %s, want number", ErrTypeMismatch, name, v.Kind())
		}
	}
	return nil
}

// checkString accepts an absent attribute or any string kind.
func checkString(a Attributes, names ...string) error {
	for _, name := range names {
		v, ok := a.Get(name)
		if !ok {
			continue
		}
		if _, ok := v.AsString(); !ok {
			return fmt.Errorf("%w: %q is %s, want string", ErrTypeMismatch, name, v.Kind())
		}
	}
	return nil
}
