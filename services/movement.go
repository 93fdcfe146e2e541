package services

import "cleanbot/server/models"

// RandomSource is the subset of *rand.Rand the movement policy needs
type RandomSource interface {
	Intn(n int) int
}

// MovementPolicy picks the direction of the agent's next step
type MovementPolicy struct {
	rng RandomSource
}

// NewMovementPolicy creates a policy that breaks ties among unclean tiles with rng
func NewMovementPolicy(rng RandomSource) *MovementPolicy {
	return &MovementPolicy{rng: rng}
}

// Next returns the direction to step in, and false when the agent is walled in.
//
// Keep going straight while the tile ahead is unvisited floor. Otherwise pick a
// random unvisited neighbour, and when none is left pick the least-visited one,
// preferring the current facing on ties.
func (m *MovementPolicy) Next(agent *models.Agent, grid *models.Grid, ledger *models.Ledger) (models.Direction, bool) {
	ahead := agent.Ahead()
	if grid.IsFloor(ahead) && ledger.VisitCount(ahead) == 0 {
		return agent.Facing, true
	}

	open := openDirections(agent.Position, grid)
	if len(open) == 0 {
		return agent.Facing, false
	}

	var unclean []models.Direction
	for _, d := range open {
		if ledger.VisitCount(agent.Position.Add(d)) == 0 {
			unclean = append(unclean, d)
		}
	}
	if len(unclean) > 0 {
		return unclean[m.rng.Intn(len(unclean))], true
	}

	return leastVisited(agent, open, ledger), true
}

// openDirections lists the directions leading to in-bounds floor tiles
func openDirections(from models.Position, grid *models.Grid) []models.Direction {
	var open []models.Direction
	for _, d := range models.Directions() {
		if grid.IsFloor(from.Add(d)) {
			open = append(open, d)
		}
	}
	return open
}

func leastVisited(agent *models.Agent, open []models.Direction, ledger *models.Ledger) models.Direction {
	best := open[0]
	bestCount := ledger.VisitCount(agent.Position.Add(best))
	for _, d := range open[1:] {
		if n := ledger.VisitCount(agent.Position.Add(d)); n < bestCount {
			best, bestCount = d, n
		}
	}

	for _, d := range open {
		if d == agent.Facing && ledger.VisitCount(agent.Position.Add(d)) == bestCount {
			return d
		}
	}
	return best
}
