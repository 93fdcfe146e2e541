package services

import (
	"fmt"

	"cleanbot/server/messages"
	"cleanbot/server/models"
)

// DefaultStuckThreshold is the visit count above which a tile means the agent is looping
const DefaultStuckThreshold = 25

// TerminationPolicy decides when a run is over
type TerminationPolicy struct {
	StuckThreshold int
	MaxTicks       int // 0 disables the limit
}

// TickOutcome is what the termination policy looks at after a tick
type TickOutcome struct {
	Position   models.Position
	VisitCount int
	Moved      bool
	Cleaned    int
	Total      int
	Ticks      int
}

// Verdict is the result of evaluating a tick
type Verdict struct {
	Stop    bool
	Reason  string
	Message string
}

// Evaluate checks the tick outcome against the stop conditions.
// Completion only counts on ticks where the agent actually moved.
func (p TerminationPolicy) Evaluate(o TickOutcome) Verdict {
	threshold := p.StuckThreshold
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}

	if o.VisitCount > threshold {
		return Verdict{
			Stop:   true,
			Reason: messages.ReasonStuck,
			Message: fmt.Sprintf("My pathfinding is going in circles: tile [%d,%d] has been cleaned %d times already, so I'm stopping here.",
				o.Position.X, o.Position.Y, o.VisitCount),
		}
	}

	if o.Moved && o.Cleaned >= o.Total {
		return Verdict{
			Stop:    true,
			Reason:  messages.ReasonComplete,
			Message: "The room is 100% complete! Now you can relax :D",
		}
	}

	if p.MaxTicks > 0 && o.Ticks >= p.MaxTicks {
		return Verdict{
			Stop:    true,
			Reason:  messages.ReasonTickLimit,
			Message: fmt.Sprintf("Stopped after %d ticks with %d of %d tiles cleaned.", o.Ticks, o.Cleaned, o.Total),
		}
	}

	return Verdict{}
}
