package models

import (
	"fmt"
	"strings"
)

// Tile types for a parsed room map
const (
	TileWall = iota
	TileFloor
)

// DefaultFloorMarkers lists the map characters treated as floor
const DefaultFloorMarkers = " "

// MalformedMapError is returned when a map string cannot become a grid
type MalformedMapError struct {
	Reason string
}

func (e *MalformedMapError) Error() string {
	return fmt.Sprintf("malformed map: %s", e.Reason)
}

// ParseOptions controls how map text is turned into a grid
type ParseOptions struct {
	// FloorMarkers holds every character that counts as floor. Empty means DefaultFloorMarkers.
	FloorMarkers string
	// Strict rejects maps whose rows have different lengths.
	Strict bool
}

// Grid represents the room as rows of characters and their tile types
type Grid struct {
	rows  [][]rune
	tiles [][]int
}

// ParseGrid builds a grid from map text, one row per line
func ParseGrid(text string, opts ParseOptions) (*Grid, error) {
	if text == "" {
		return nil, &MalformedMapError{Reason: "map has no rows"}
	}

	markers := opts.FloorMarkers
	if markers == "" {
		markers = DefaultFloorMarkers
	}

	lines := strings.Split(text, "\n")
	g := &Grid{
		rows:  make([][]rune, 0, len(lines)),
		tiles: make([][]int, 0, len(lines)),
	}

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		chars := []rune(line)
		tiles := make([]int, len(chars))
		for x, c := range chars {
			if strings.ContainsRune(markers, c) {
				tiles[x] = TileFloor
			} else {
				tiles[x] = TileWall
			}
		}
		g.rows = append(g.rows, chars)
		g.tiles = append(g.tiles, tiles)
	}

	if opts.Strict {
		width := len(g.rows[0])
		for y, row := range g.rows {
			if len(row) != width {
				return nil, &MalformedMapError{
					Reason: fmt.Sprintf("ragged rows: row %d has %d columns, expected %d", y, len(row), width),
				}
			}
		}
	}

	return g, nil
}

// Height returns the number of rows
func (g *Grid) Height() int {
	return len(g.tiles)
}

// Width returns the length of row y, or 0 if the row does not exist
func (g *Grid) Width(y int) int {
	if y < 0 || y >= len(g.tiles) {
		return 0
	}
	return len(g.tiles[y])
}

// InBounds reports whether p addresses an existing column of an existing row
func (g *Grid) InBounds(p Position) bool {
	return p.Y >= 0 && p.Y < len(g.tiles) && p.X >= 0 && p.X < len(g.tiles[p.Y])
}

// SymbolAt returns the tile type at p. Callers must check InBounds first.
func (g *Grid) SymbolAt(p Position) int {
	return g.tiles[p.Y][p.X]
}

// CharAt returns the raw map character at p. Callers must check InBounds first.
func (g *Grid) CharAt(p Position) rune {
	return g.rows[p.Y][p.X]
}

// IsFloor reports whether p is in bounds and a floor tile
func (g *Grid) IsFloor(p Position) bool {
	return g.InBounds(p) && g.SymbolAt(p) == TileFloor
}

// FirstFloorTile scans row-major and returns the first floor tile.
// The origin is returned when the map has no floor at all.
func (g *Grid) FirstFloorTile() Position {
	for y, row := range g.tiles {
		for x, tile := range row {
			if tile == TileFloor {
				return Position{X: x, Y: y}
			}
		}
	}
	return Position{X: 0, Y: 0}
}

// FloorTiles returns every floor coordinate in row-major order
func (g *Grid) FloorTiles() []Position {
	var floors []Position
	for y, row := range g.tiles {
		for x, tile := range row {
			if tile == TileFloor {
				floors = append(floors, Position{X: x, Y: y})
			}
		}
	}
	return floors
}

// Rows returns a copy of the map as rows of single-character strings
func (g *Grid) Rows() [][]string {
	out := make([][]string, len(g.rows))
	for y, row := range g.rows {
		out[y] = make([]string, len(row))
		for x, c := range row {
			out[y][x] = string(c)
		}
	}
	return out
}

// String renders the grid back into map text
func (g *Grid) String() string {
	lines := make([]string, len(g.rows))
	for y, row := range g.rows {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}
