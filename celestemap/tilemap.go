package celestemap

import (
	"bytes"
	"fmt"
	"strings"
)

// Tile grid constants.
const (
	EmptyTile    byte = '0'
	RowDelimiter byte = '\n'

	// TileSize is the edge length of a tile in pixels.
	TileSize = 8

	// MaxTiles bounds the area of a single grid.
	MaxTiles = 1 << 26
)

// Tilemap is a grid of single-byte tile codes, row-major with the origin
// at the top left. An all-empty grid holds no tile storage until a
// non-empty tile is written.
type Tilemap struct {
	width, height int
	tiles         []byte // nil while every tile is EmptyTile

	// Where the grid came from. A grid whose rendering still matches
	// source is written back as source.
	source    Value
	hasSource bool
	trimmed   bool
}

// tileBudget counts the tiles a decode may still allocate. A nil budget
// is unlimited.
type tileBudget struct {
	left int
}

// tilesPerInputByte sizes the decode budget. An RLE pair expands to at
// most 255 tiles from 2 bytes, so fully encoded grids always fit.
const tilesPerInputByte = 256

func newTileBudget(inputBytes int) *tileBudget {
	return &tileBudget{left: tilesPerInputByte * inputBytes}
}

func (b *tileBudget) take(n int) error {
	if b == nil {
		return nil
	}
	if n > b.left {
		return fmt.Errorf("%w: grid of %d tiles exceeds the remaining decode budget of %d", ErrLimitExceeded, n, b.left)
	}
	b.left -= n
	return nil
}

// NewTilemap creates a width x height grid of EmptyTile.
func NewTilemap(width, height int) (*Tilemap, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return &Tilemap{width: width, height: height, source: RLE("")}, nil
}

// ParseTilemap parses rows separated by RowDelimiter. Every row must be
// exactly width bytes and there must be exactly height rows.
func ParseTilemap(text string, width, height int) (*Tilemap, error) {
	return parseTilemap(text, width, height, false, nil)
}

func parseTilemap(text string, width, height int, allowTrimmed bool, budget *tileBudget) (*Tilemap, error) {
	m, err := NewTilemap(width, height)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		if text != "" {
			return nil, fmt.Errorf("%w: %d bytes of tile data for a grid with no rows", ErrMalformedTilemap, len(text))
		}
		return m, nil
	}

	rows := strings.Split(text, string(RowDelimiter))
	if len(rows) > height || (!allowTrimmed && len(rows) != height) {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrMalformedTilemap, len(rows), height)
	}
	m.trimmed = len(rows) < height
	for y, row := range rows {
		if len(row) > width || (!allowTrimmed && len(row) != width) {
			return nil, fmt.Errorf("%w: row %d is %d tiles wide, want %d", ErrMalformedTilemap, y, len(row), width)
		}
		if len(row) < width {
			m.trimmed = true
		}
	}
	if len(text) == len(rows)-1 {
		// Delimiters only.
		return m, nil
	}
	if err := budget.take(width * height); err != nil {
		return nil, err
	}
	m.alloc()
	for y, row := range rows {
		copy(m.tiles[y*width:], row)
	}
	return m, nil
}

func checkSize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: size %dx%d", ErrOutOfBounds, width, height)
	}
	if height > 0 && width > MaxTiles/height {
		return fmt.Errorf("%w: %dx%d tiles, at most %d", ErrLimitExceeded, width, height, MaxTiles)
	}
	return nil
}

// tilemapFromValue parses a grid held in an attribute value.
func tilemapFromValue(v Value, width, height int, allowTrimmed bool, budget *tileBudget) (*Tilemap, error) {
	text, ok := v.AsString()
	if !ok {
		return nil, fmt.Errorf("%w: tile data is %s, want string", ErrTypeMismatch, v.Kind())
	}
	m, err := parseTilemap(text, width, height, allowTrimmed, budget)
	if err != nil {
		return nil, err
	}
	m.source = v
	m.hasSource = true
	return m, nil
}

func (m *Tilemap) alloc() {
	if m.tiles == nil {
		m.tiles = bytes.Repeat([]byte{EmptyTile}, m.width*m.height)
	}
}

// Width returns the number of columns.
func (m *Tilemap) Width() int { return m.width }

// Height returns the number of rows.
func (m *Tilemap) Height() int { return m.height }

// Get returns the tile at column x, row y.
func (m *Tilemap) Get(x, y int) (byte, error) {
	if !m.inBounds(x, y) {
		return 0, fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfBounds, x, y, m.width, m.height)
	}
	if m.tiles == nil {
		return EmptyTile, nil
	}
	return m.tiles[y*m.width+x], nil
}

// Set stores tile at column x, row y.
func (m *Tilemap) Set(x, y int, tile byte) error {
	if !m.inBounds(x, y) {
		return fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfBounds, x, y, m.width, m.height)
	}
	if tile == RowDelimiter {
		return fmt.Errorf("%w: row delimiter", ErrInvalidTile)
	}
	if m.tiles == nil {
		if tile == EmptyTile {
			return nil
		}
		m.alloc()
	}
	m.tiles[y*m.width+x] = tile
	return nil
}

func (m *Tilemap) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// Fill sets every tile.
func (m *Tilemap) Fill(tile byte) error {
	if tile == RowDelimiter {
		return fmt.Errorf("%w: row delimiter", ErrInvalidTile)
	}
	if tile == EmptyTile {
		m.tiles = nil
		return nil
	}
	m.tiles = bytes.Repeat([]byte{tile}, m.width*m.height)
	return nil
}

// Resize changes the grid size, keeping the top-left content and filling
// new cells with EmptyTile.
func (m *Tilemap) Resize(width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	if m.tiles != nil {
		tiles := bytes.Repeat([]byte{EmptyTile}, width*height)
		for y := 0; y < min(height, m.height); y++ {
			copy(tiles[y*width:(y+1)*width], m.tiles[y*m.width:y*m.width+min(width, m.width)])
		}
		m.tiles = tiles
	}
	m.width, m.height = width, height
	return nil
}

// Rotate180 turns the grid upside down in place.
func (m *Tilemap) Rotate180() {
	for i, j := 0, len(m.tiles)-1; i < j; i, j = i+1, j-1 {
		m.tiles[i], m.tiles[j] = m.tiles[j], m.tiles[i]
	}
}

// Clone returns an independent copy, including where it was read from.
func (m *Tilemap) Clone() *Tilemap {
	out := *m
	out.tiles = bytes.Clone(m.tiles)
	return &out
}

// Rows returns the grid as strings, top row first.
func (m *Tilemap) Rows() []string {
	rows := make([]string, m.height)
	for y := range rows {
		rows[y] = string(m.row(y))
	}
	return rows
}

// row returns row y. The result must not be modified.
func (m *Tilemap) row(y int) []byte {
	if m.tiles == nil {
		return bytes.Repeat([]byte{EmptyTile}, m.width)
	}
	return m.tiles[y*m.width : (y+1)*m.width]
}

func (m *Tilemap) empty() bool {
	for _, t := range m.tiles {
		if t != EmptyTile {
			return false
		}
	}
	return true
}

// Equal reports whether both grids have the same size and tiles.
func (m *Tilemap) Equal(o *Tilemap) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	switch {
	case m.tiles == nil:
		return o.empty()
	case o.tiles == nil:
		return m.empty()
	}
	return bytes.Equal(m.tiles, o.tiles)
}

// String returns every row at full width joined by RowDelimiter.
func (m *Tilemap) String() string {
	return m.render(false)
}

func (m *Tilemap) render(trimmed bool) string {
	var sb strings.Builder
	if !trimmed || m.tiles != nil {
		sb.Grow(m.width*m.height + m.height)
	}
	var emptyRow []byte
	if m.tiles == nil && !trimmed {
		emptyRow = bytes.Repeat([]byte{EmptyTile}, m.width)
	}
	for y := 0; y < m.height; y++ {
		if y > 0 {
			sb.WriteByte(RowDelimiter)
		}
		if m.tiles == nil {
			sb.Write(emptyRow)
			continue
		}
		row := m.tiles[y*m.width : (y+1)*m.width]
		if trimmed {
			row = bytes.TrimRight(row, string(EmptyTile))
		}
		sb.Write(row)
	}
	return sb.String()
}

// value returns the attribute value to store for the grid: the value it
// was read from when the content is unchanged, otherwise a fresh value
// of the same kind and row style.
func (m *Tilemap) value() Value {
	if m.hasSource {
		src, err := parseTilemap(m.source.str, m.width, m.height, true, nil)
		if err == nil && src.Equal(m) {
			return m.source
		}
	}
	return StringOfKind(m.source.Kind(), m.render(m.trimmed))
}
