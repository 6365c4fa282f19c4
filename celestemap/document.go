package celestemap

import (
	"bytes"
	"fmt"

	"github.com/Neumenon/celestemap/wire"
)

// Header is the marker every map document starts with.
const Header = "CELESTE MAP"

// Document is the generic form of a map file: the package name, the
// string table and the root element, before any typed mapping.
type Document struct {
	Package string
	Strings *StringTable
	Root    *Element
}

// DecodeDocument parses data into a Document. The whole input must be
// consumed.
func DecodeDocument(data []byte, opts ...Option) (*Document, error) {
	return decodeDocument(data, newConfig(opts))
}

func decodeDocument(data []byte, c *config) (*Document, error) {
	r := wire.NewReader(data)

	if c.header {
		marker, err := r.ReadString()
		if err != nil {
			return nil, newDecodeError(StageHeader, err)
		}
		if marker != Header {
			return nil, newDecodeError(StageHeader,
				offsetError("read header", 0, fmt.Errorf("%w: got %q", ErrInvalidHeader, truncate(marker, 32))))
		}
	}
	pkg, err := r.ReadString()
	if err != nil {
		return nil, newDecodeError(StageHeader, err)
	}

	table, err := ReadStringTable(r)
	if err != nil {
		return nil, newDecodeError(StageStrings, err)
	}
	c.logger.Debug("read string table", "package", pkg, "strings", table.Len(), "offset", r.Offset())

	root, err := decodeElement(r, table, -1, 0, c.maxDepth)
	if err != nil {
		return nil, newDecodeError(StageTree, err)
	}
	if r.Len() > 0 {
		return nil, newDecodeError(StageTree,
			offsetError("read document", r.Offset(), fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, r.Len())))
	}

	return &Document{Package: pkg, Strings: table, Root: root}, nil
}

// EncodeDocument writes d. When d.Strings is set it seeds the table;
// strings it lacks are appended in first-use order.
func EncodeDocument(d *Document, opts ...Option) ([]byte, error) {
	c := newConfig(opts)
	seed := d.Strings
	if c.freshStrings {
		seed = nil
	}
	return encodeDocument(d.Package, seed, d.Root, c)
}

func encodeDocument(pkg string, seed *StringTable, root *Element, c *config) ([]byte, error) {
	if root == nil {
		return nil, newEncodeError(StageTree, fmt.Errorf("%w: document has no root element", ErrUnexpectedElement))
	}
	table := buildStringTable(seed, root)
	if table.Len() > wire.MaxIndex+1 {
		return nil, newEncodeError(StageStrings,
			fmt.Errorf("%w: %d strings, at most %d", ErrLimitExceeded, table.Len(), wire.MaxIndex+1))
	}

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if c.header {
		if err := w.WriteString(Header); err != nil {
			return nil, newEncodeError(StageHeader, err)
		}
	}
	if err := w.WriteString(pkg); err != nil {
		return nil, newEncodeError(StageHeader, err)
	}
	if err := table.WriteTo(w); err != nil {
		return nil, newEncodeError(StageStrings, err)
	}
	if err := encodeElement(w, root, table, -1); err != nil {
		return nil, newEncodeError(StageTree, err)
	}
	c.logger.Debug("encoded document", "package", pkg, "strings", table.Len(), "bytes", w.Written())
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
