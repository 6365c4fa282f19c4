package celestemap

import (
	"fmt"
	"io"
)

// Load reads a whole map document from r. The input is buffered in
// memory; either a complete Map or a *DecodeError is returned.
func Load(r io.Reader, opts ...Option) (*Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Stage: StageRead, Offset: -1, Err: fmt.Errorf("read input: %w", err)}
	}
	return Decode(data, opts...)
}

// Decode parses a map document held in data.
func Decode(data []byte, opts ...Option) (*Map, error) {
	c := newConfig(opts)
	d, err := decodeDocument(data, c)
	if err != nil {
		return nil, err
	}
	c.tiles = newTileBudget(len(data))
	m, err := mapFromDocument(d, c)
	if err != nil {
		return nil, newDecodeError(StageMapping, err)
	}
	c.logger.Debug("decoded map", "package", m.Package, "levels", len(m.Levels), "bytes", len(data))
	return m, nil
}

// Store writes m to w starting at w's current position, in a single
// Write call. Nothing is written if encoding fails. m is not modified.
func Store(w io.Writer, m *Map, opts ...Option) error {
	data, err := Encode(m, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &EncodeError{Stage: StageWrite, Err: err}
	}
	return nil
}

// Encode returns the document bytes for m.
func Encode(m *Map, opts ...Option) ([]byte, error) {
	c := newConfig(opts)
	root, err := m.element()
	if err != nil {
		return nil, newEncodeError(StageMapping, err)
	}
	seed := m.strings
	if c.freshStrings {
		seed = nil
	}
	return encodeDocument(m.Package, seed, root, c)
}
