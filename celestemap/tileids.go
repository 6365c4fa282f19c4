package celestemap

import (
	"strconv"
	"strings"
)

// NoTile marks an empty cell in a tile ID grid.
const NoTile int32 = -1

// Tile ID layers of a level. Each holds comma separated tileset indices,
// one line per row.
const (
	LayerBgTiles  = "bgtiles"
	LayerFgTiles  = "fgtiles"
	LayerObjTiles = "objtiles"
)

// parseTileIDs reads a width x height grid. Cells that are missing or do
// not parse are NoTile; cells beyond the grid are ignored.
func parseTileIDs(text string, width, height int) [][]int32 {
	grid := newTileIDs(width, height)
	if text == "" {
		return grid
	}
	for y, line := range strings.Split(text, string(RowDelimiter)) {
		if y >= height {
			break
		}
		for x, cell := range strings.Split(line, ",") {
			if x >= width {
				break
			}
			n, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 32)
			if err != nil {
				continue
			}
			grid[y][x] = int32(n)
		}
	}
	return grid
}

func newTileIDs(width, height int) [][]int32 {
	grid := make([][]int32, height)
	for y := range grid {
		row := make([]int32, width)
		for x := range row {
			row[x] = NoTile
		}
		grid[y] = row
	}
	return grid
}

// renderTileIDs writes rows with trailing NoTile cells left out.
func renderTileIDs(grid [][]int32) string {
	var sb strings.Builder
	for y, row := range grid {
		if y > 0 {
			sb.WriteByte(RowDelimiter)
		}
		end := len(row)
		for end > 0 && row[end-1] == NoTile {
			end--
		}
		for x, id := range row[:end] {
			if x > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(id), 10))
		}
	}
	return sb.String()
}

func resizeTileIDs(grid [][]int32, width, height int) [][]int32 {
	out := newTileIDs(width, height)
	for y := 0; y < min(height, len(grid)); y++ {
		copy(out[y], grid[y][:min(width, len(grid[y]))])
	}
	return out
}
