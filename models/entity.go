package models

import "fmt"

// Position is a tile coordinate on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key returns the ledger key for the position, in the form x_y
func (p Position) Key() string {
	return fmt.Sprintf("%d_%d", p.X, p.Y)
}

// Add returns the position one step along d
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Direction is a unit step along one axis
type Direction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var (
	East  = Direction{X: 1, Y: 0}
	West  = Direction{X: -1, Y: 0}
	South = Direction{X: 0, Y: 1}
	North = Direction{X: 0, Y: -1}
)

// Directions returns the four movement directions in enumeration order
func Directions() []Direction {
	return []Direction{East, West, South, North}
}

// Valid reports whether d is one of the four unit directions
func (d Direction) Valid() bool {
	switch d {
	case East, West, South, North:
		return true
	}
	return false
}

// Agent is a cleaning robot placed on a grid
type Agent struct {
	ID       string    `json:"id"`
	Position Position  `json:"pos"`
	Facing   Direction `json:"facing"`
}

// NewAgent places an agent at start, facing east
func NewAgent(id string, start Position) *Agent {
	return &Agent{
		ID:       id,
		Position: start,
		Facing:   East,
	}
}

// Ahead returns the tile in front of the agent
func (a *Agent) Ahead() Position {
	return a.Position.Add(a.Facing)
}

// Move turns the agent toward d and steps once
func (a *Agent) Move(d Direction) {
	a.Facing = d
	a.Position = a.Position.Add(d)
}
