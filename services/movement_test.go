package services

import (
	"math/rand"
	"testing"

	"cleanbot/server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGrid(t *testing.T, text string) *models.Grid {
	t.Helper()
	g, err := models.ParseGrid(text, models.ParseOptions{})
	require.NoError(t, err)
	return g
}

func TestMovementPolicy_ContinuesForward(t *testing.T) {
	g := mustGrid(t, "#####\n#   #\n#####")
	l := models.NewLedger(g)
	a := models.NewAgent("a", models.Position{X: 1, Y: 1})
	l.Visit(a.Position)

	p := NewMovementPolicy(fixedRand(0))
	dir, ok := p.Next(a, g, l)
	require.True(t, ok)
	assert.Equal(t, models.East, dir)
}

func TestMovementPolicy_WalledIn(t *testing.T) {
	g := mustGrid(t, "###\n# #\n###")
	l := models.NewLedger(g)
	a := models.NewAgent("a", models.Position{X: 1, Y: 1})
	a.Facing = models.North

	dir, ok := NewMovementPolicy(fixedRand(0)).Next(a, g, l)
	assert.False(t, ok)
	assert.Equal(t, models.North, dir)
}

func TestMovementPolicy_PicksAmongUncleanNeighbours(t *testing.T) {
	// Agent in the middle of a plus shape, facing a wall, with west and south unvisited
	g := mustGrid(t, "#####\n## ##\n#   #\n## ##\n#####")
	l := models.NewLedger(g)
	a := models.NewAgent("a", models.Position{X: 2, Y: 2})
	l.Visit(a.Position)
	l.Visit(models.Position{X: 3, Y: 2}) // east
	l.Visit(models.Position{X: 2, Y: 1}) // north

	a.Facing = models.East
	tests := []struct {
		pick int
		want models.Direction
	}{
		{0, models.West},
		{1, models.South},
	}
	for _, tt := range tests {
		dir, ok := NewMovementPolicy(fixedRand(tt.pick)).Next(a, g, l)
		require.True(t, ok)
		assert.Equal(t, tt.want, dir)
	}
}

func TestMovementPolicy_LeastVisited(t *testing.T) {
	g := mustGrid(t, "#####\n## ##\n#   #\n## ##\n#####")
	l := models.NewLedger(g)
	center := models.Position{X: 2, Y: 2}
	for i := 0; i < 3; i++ {
		l.Visit(models.Position{X: 3, Y: 2}) // east: 3
	}
	l.Visit(models.Position{X: 1, Y: 2}) // west: 1
	l.Visit(models.Position{X: 1, Y: 2}) // west: 2
	l.Visit(models.Position{X: 2, Y: 3}) // south: 1
	l.Visit(models.Position{X: 2, Y: 1}) // north: 1

	t.Run("smallest count wins", func(t *testing.T) {
		a := models.NewAgent("a", center)
		a.Facing = models.East
		dir, ok := NewMovementPolicy(fixedRand(0)).Next(a, g, l)
		require.True(t, ok)
		assert.Equal(t, models.South, dir)
	})

	t.Run("tie prefers current facing", func(t *testing.T) {
		a := models.NewAgent("a", center)
		a.Facing = models.North
		dir, ok := NewMovementPolicy(fixedRand(0)).Next(a, g, l)
		require.True(t, ok)
		assert.Equal(t, models.North, dir)
	})
}

func TestMovementPolicy_TieWithoutFacingUsesEnumerationOrder(t *testing.T) {
	g := mustGrid(t, "#####\n#   #\n#####")
	l := models.NewLedger(g)
	l.Visit(models.Position{X: 1, Y: 1})
	l.Visit(models.Position{X: 3, Y: 1})
	a := models.NewAgent("a", models.Position{X: 2, Y: 1})
	a.Facing = models.North

	dir, ok := NewMovementPolicy(fixedRand(0)).Next(a, g, l)
	require.True(t, ok)
	assert.Equal(t, models.East, dir)
}

func TestMovementPolicy_NeverStepsOffFloor(t *testing.T) {
	g := mustGrid(t, "#####\n#   #\n# # #\n#   #\n#####")
	l := models.NewLedger(g)
	a := models.NewAgent("a", g.FirstFloorTile())
	l.Visit(a.Position)
	p := NewMovementPolicy(rand.New(rand.NewSource(7)))

	for i := 0; i < 200; i++ {
		dir, ok := p.Next(a, g, l)
		require.True(t, ok)
		require.True(t, dir.Valid())
		a.Move(dir)
		require.True(t, g.IsFloor(a.Position), "tick %d left the floor at %v", i, a.Position)
		l.Visit(a.Position)
	}
}

func TestMovementPolicy_SeededRunsAreReproducible(t *testing.T) {
	g := mustGrid(t, "#######\n#     #\n#     #\n#     #\n#######")

	walk := func(seed int64) []models.Position {
		l := models.NewLedger(g)
		a := models.NewAgent("a", g.FirstFloorTile())
		l.Visit(a.Position)
		p := NewMovementPolicy(rand.New(rand.NewSource(seed)))

		var path []models.Position
		for i := 0; i < 60; i++ {
			if dir, ok := p.Next(a, g, l); ok {
				a.Move(dir)
			}
			l.Visit(a.Position)
			path = append(path, a.Position)
		}
		return path
	}

	assert.Equal(t, walk(42), walk(42))
}
