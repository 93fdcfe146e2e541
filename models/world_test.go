package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid("#####\n#   #\n#####", ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, g.Height())
	assert.Equal(t, 5, g.Width(1))
	assert.Equal(t, TileWall, g.SymbolAt(Position{X: 0, Y: 1}))
	assert.Equal(t, TileFloor, g.SymbolAt(Position{X: 1, Y: 1}))
	assert.Equal(t, "#####\n#   #\n#####", g.String())
}

func TestParseGrid_EmptyInput(t *testing.T) {
	_, err := ParseGrid("", ParseOptions{})

	var malformed *MalformedMapError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, err.Error(), "no rows")
}

func TestParseGrid_Ragged(t *testing.T) {
	text := "####\n# \n####"

	g, err := ParseGrid(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width(1))
	assert.False(t, g.InBounds(Position{X: 2, Y: 1}))
	assert.True(t, g.InBounds(Position{X: 2, Y: 0}))

	_, err = ParseGrid(text, ParseOptions{Strict: true})
	var malformed *MalformedMapError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Reason, "ragged")
}

func TestParseGrid_CarriageReturns(t *testing.T) {
	g, err := ParseGrid("###\r\n# #\r\n###", ParseOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Width(1))
	assert.True(t, g.IsFloor(Position{X: 1, Y: 1}))
}

func TestParseGrid_CustomFloorMarkers(t *testing.T) {
	g, err := ParseGrid("#.#\n# #", ParseOptions{FloorMarkers: "."})
	require.NoError(t, err)
	assert.True(t, g.IsFloor(Position{X: 1, Y: 0}))
	assert.False(t, g.IsFloor(Position{X: 1, Y: 1}))
}

func TestGrid_InBounds(t *testing.T) {
	g, err := ParseGrid("##\n##", ParseOptions{})
	require.NoError(t, err)

	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{X: 0, Y: 0}, true},
		{Position{X: 1, Y: 1}, true},
		{Position{X: -1, Y: 0}, false},
		{Position{X: 0, Y: -1}, false},
		{Position{X: 2, Y: 0}, false},
		{Position{X: 0, Y: 2}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.InBounds(tt.pos), "pos %v", tt.pos)
	}
}

func TestGrid_FirstFloorTile(t *testing.T) {
	g, err := ParseGrid("####\n## #\n#  #", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 2, Y: 1}, g.FirstFloorTile())
	assert.Len(t, g.FloorTiles(), 3)

	walls, err := ParseGrid("###\n###", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 0, Y: 0}, walls.FirstFloorTile())
	assert.Empty(t, walls.FloorTiles())
}

func TestGrid_RowsIsCopy(t *testing.T) {
	g, err := ParseGrid("# #", ParseOptions{})
	require.NoError(t, err)

	rows := g.Rows()
	assert.Equal(t, [][]string{{"#", " ", "#"}}, rows)

	rows[0][1] = "#"
	assert.True(t, g.IsFloor(Position{X: 1, Y: 0}))
}
