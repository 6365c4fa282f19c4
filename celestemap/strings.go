package celestemap

import (
	"fmt"
	"strings"

	"github.com/Neumenon/celestemap/wire"
)

// ============================================================
// String Table
// ============================================================

// StringTable is an ordered set of unique strings. A string's index is
// its position; index 0 is a valid index.
//
// A table belongs to a single decode or encode pass. Maps keep a private
// clone of the table they were loaded with.
type StringTable struct {
	entries []string
	index   map[string]int
}

// NewStringTable creates a table holding entries in order. Duplicates are
// rejected with ErrDuplicateString.
func NewStringTable(entries ...string) (*StringTable, error) {
	t := &StringTable{
		entries: make([]string, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, s := range entries {
		if prev, ok := t.index[s]; ok {
			return nil, fmt.Errorf("%w: %q at %d and %d", ErrDuplicateString, s, prev, i)
		}
		t.Intern(s)
	}
	return t, nil
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// At returns the string at index i.
func (t *StringTable) At(i int) (string, error) {
	if i < 0 || i >= t.Len() {
		return "", fmt.Errorf("%w: %d (len=%d)", ErrStringIndexOutOfRange, i, t.Len())
	}
	return t.entries[i], nil
}

// Index returns the index of s.
func (t *StringTable) Index(s string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[s]
	return i, ok
}

// Intern returns the index of s, assigning the next one if s is new.
func (t *StringTable) Intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.entries)
	t.entries = append(t.entries, s)
	t.index[s] = i
	return i
}

// Strings returns a copy of the entries in index order.
func (t *StringTable) Strings() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.entries))
	copy(out, t.entries)
	return out
}

// Clone returns an independent copy.
func (t *StringTable) Clone() *StringTable {
	out := &StringTable{
		entries: t.Strings(),
		index:   make(map[string]int, t.Len()),
	}
	for i, s := range out.entries {
		out.index[s] = i
	}
	return out
}

// String returns a short description for debugging.
func (t *StringTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "StringTable(%d)[", t.Len())
	for i, s := range t.Strings() {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%q", i, s)
	}
	sb.WriteString("]")
	return sb.String()
}

// ============================================================
// Wire form
// ============================================================

// ReadStringTable reads a u16 count followed by that many strings.
func ReadStringTable(r *wire.Reader) (*StringTable, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, min(int(count), r.Len()))
	offsets := make([]int64, 0, cap(entries))
	for i := 0; i < int(count); i++ {
		off := r.Offset()
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		entries = append(entries, s)
		offsets = append(offsets, off)
	}

	// Checked after the full read so a short table reports truncation.
	t := &StringTable{entries: entries, index: make(map[string]int, len(entries))}
	for i, s := range entries {
		if prev, ok := t.index[s]; ok {
			return nil, offsetError("read string table", offsets[i],
				fmt.Errorf("%w: %q at %d and %d", ErrDuplicateString, s, prev, i))
		}
		t.index[s] = i
	}
	return t, nil
}

// WriteTo writes the table in wire form.
func (t *StringTable) WriteTo(w *wire.Writer) error {
	if t.Len() > wire.MaxIndex+1 {
		return fmt.Errorf("%w: %d strings, at most %d", ErrLimitExceeded, t.Len(), wire.MaxIndex+1)
	}
	if err := w.WriteU16(uint16(t.Len())); err != nil {
		return err
	}
	for _, s := range t.entries {
		if err := w.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

// buildStringTable interns every string root needs, in write order, on
// top of seed. A nil seed gives a pure first-use table.
func buildStringTable(seed *StringTable, root *Element) *StringTable {
	var t *StringTable
	if seed != nil {
		t = seed.Clone()
	} else {
		t = &StringTable{index: make(map[string]int)}
	}
	root.Walk(func(e *Element) bool {
		t.Intern(e.Name)
		for _, attr := range e.Attrs {
			t.Intern(attr.Name)
			if attr.Value.Kind() == KindInterned {
				t.Intern(attr.Value.str)
			}
		}
		return true
	})
	return t
}
