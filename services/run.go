package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"cleanbot/server/messages"
	"cleanbot/server/models"
)

// RunState is the lifecycle state of a run
type RunState string

const (
	RunRunning RunState = "running"
	RunStopped RunState = "stopped"
)

// RunDeps are the collaborators a run is built with
type RunDeps struct {
	Policy      *MovementPolicy
	Termination TerminationPolicy
	Sink        EventSink
	Clock       Clock
	Interval    time.Duration
	// OnStop is called once, outside the run's lock, after the run stops.
	OnStop func(*Run)
}

// RunStatus is a point-in-time view of a run
type RunStatus struct {
	ID           string           `json:"id"`
	State        RunState         `json:"state"`
	Pos          models.Position  `json:"pos"`
	Facing       models.Direction `json:"facing"`
	Ticks        int              `json:"ticks"`
	ElapsedTime  int64            `json:"elapsed_time"`
	Productivity int              `json:"productivity"`
	Cleaned      int              `json:"cleaned"`
	Total        int              `json:"total"`
	Reason       string           `json:"reason,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
}

// Run owns one agent, its grid and its ledger for the lifetime of a simulation
type Run struct {
	agent       *models.Agent
	grid        *models.Grid
	ledger      *models.Ledger
	policy      *MovementPolicy
	termination TerminationPolicy
	sink        EventSink
	clock       Clock
	interval    time.Duration
	onStop      func(*Run)
	startedAt   time.Time

	mu      sync.Mutex
	state   RunState
	tick    TickState
	verdict Verdict

	done     chan struct{}
	doneOnce sync.Once
}

// NewRun places an agent on the first floor tile of grid and announces it.
// The run does not tick until Start is called or Tick is driven by hand.
func NewRun(id string, grid *models.Grid, deps RunDeps) *Run {
	if deps.Sink == nil {
		deps.Sink = DiscardSink
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultTickInterval
	}
	if deps.Policy == nil {
		deps.Policy = NewMovementPolicy(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	r := &Run{
		agent:       models.NewAgent(id, grid.FirstFloorTile()),
		grid:        grid,
		ledger:      models.NewLedger(grid),
		policy:      deps.Policy,
		termination: deps.Termination,
		sink:        deps.Sink,
		clock:       deps.Clock,
		interval:    deps.Interval,
		onStop:      deps.OnStop,
		state:       RunRunning,
		done:        make(chan struct{}),
	}
	r.startedAt = r.clock.Now()
	r.tick.Last = r.startedAt
	r.ledger.Visit(r.agent.Position)

	r.sink.Publish(messages.Event{
		Type:    messages.MessageTypeCreated,
		AgentID: id,
		Payload: messages.CreatedPayload{
			Map:       grid.Rows(),
			Pos:       r.agent.Position,
			StartedAt: r.startedAt,
		},
	})
	return r
}

// ID returns the agent identifier
func (r *Run) ID() string {
	return r.agent.ID
}

// Done is closed once the run has stopped
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Start ticks the run on its clock in a new goroutine until it stops or ctx ends
func (r *Run) Start(ctx context.Context) {
	go r.loop(ctx)
}

func (r *Run) loop(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			r.Stop()
			return
		case now := <-ticker.C():
			if r.Tick(now) {
				return
			}
		}
	}
}

// Drive ticks the run in virtual time, one interval apart starting from its
// creation, until it stops or limit ticks have run. limit <= 0 means no limit.
// It returns the number of ticks driven.
func (r *Run) Drive(limit int) int {
	for i := 1; limit <= 0 || i <= limit; i++ {
		if r.Tick(r.startedAt.Add(time.Duration(i) * r.interval)) {
			return i
		}
	}
	return limit
}

// Tick advances the simulation by one step and reports whether the run has stopped
func (r *Run) Tick(now time.Time) bool {
	r.mu.Lock()
	if r.state == RunStopped {
		r.mu.Unlock()
		return true
	}

	r.tick.Advance(now)

	dir, moved := r.policy.Next(r.agent, r.grid, r.ledger)
	if moved {
		r.agent.Move(dir)
	}

	pos := r.agent.Position
	newlyCleaned := 0
	if r.ledger.Visit(pos) && r.ledger.VisitCount(pos) == 1 {
		newlyCleaned = 1
	}
	r.tick.RecordCleaned(newlyCleaned)

	count := r.ledger.VisitCount(pos)
	r.sink.Publish(messages.Event{
		Type:    messages.MessageTypeProgress,
		AgentID: r.agent.ID,
		Payload: messages.ProgressPayload{
			Pos:             pos,
			Message:         r.describeLocked(pos),
			TimesCleaned:    count,
			CleanedFloorMap: r.ledger.Snapshot(),
			ElapsedTime:     r.tick.Elapsed.Milliseconds(),
			Productivity:    r.tick.Productivity,
		},
	})

	cleaned, total := r.ledger.Coverage()
	verdict := r.termination.Evaluate(TickOutcome{
		Position:   pos,
		VisitCount: count,
		Moved:      moved,
		Cleaned:    cleaned,
		Total:      total,
		Ticks:      r.tick.Ticks,
	})
	if !verdict.Stop {
		r.mu.Unlock()
		return false
	}

	r.finishLocked(verdict)
	r.mu.Unlock()
	r.release()
	return true
}

// Stop ends the run early. It is safe to call at any time and reports whether
// this call was the one that stopped the run.
func (r *Run) Stop() bool {
	r.mu.Lock()
	if r.state == RunStopped {
		r.mu.Unlock()
		return false
	}
	r.finishLocked(Verdict{
		Stop:    true,
		Reason:  messages.ReasonStopped,
		Message: "Cleaning was stopped before the room was finished.",
	})
	r.mu.Unlock()
	r.release()
	return true
}

// Status returns a snapshot of the run
func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleaned, total := r.ledger.Coverage()
	return RunStatus{
		ID:           r.agent.ID,
		State:        r.state,
		Pos:          r.agent.Position,
		Facing:       r.agent.Facing,
		Ticks:        r.tick.Ticks,
		ElapsedTime:  r.tick.Elapsed.Milliseconds(),
		Productivity: r.tick.Productivity,
		Cleaned:      cleaned,
		Total:        total,
		Reason:       r.verdict.Reason,
		StartedAt:    r.startedAt,
	}
}

// Verdict returns why the run stopped; zero while it is running
func (r *Run) Verdict() Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verdict
}

func (r *Run) finishLocked(v Verdict) {
	r.state = RunStopped
	r.verdict = v

	cleaned, total := r.ledger.Coverage()
	r.sink.Publish(messages.Event{
		Type:    messages.MessageTypeTerminated,
		AgentID: r.agent.ID,
		Payload: messages.TerminatedPayload{
			Reason:          v.Reason,
			Message:         v.Message,
			CleanedFloorMap: r.ledger.Snapshot(),
			ElapsedTime:     r.tick.Elapsed.Milliseconds(),
			Productivity:    r.tick.Productivity,
			Ticks:           r.tick.Ticks,
			Cleaned:         cleaned,
			Total:           total,
		},
	})

	slog.Info("Run finished",
		"id", r.agent.ID,
		"reason", v.Reason,
		"ticks", r.tick.Ticks,
		"cleaned", cleaned,
		"total", total,
	)
}

func (r *Run) release() {
	r.doneOnce.Do(func() {
		if r.onStop != nil {
			r.onStop(r)
		}
		close(r.done)
	})
}

func (r *Run) describeLocked(pos models.Position) string {
	symbol := ""
	if r.grid.InBounds(pos) {
		symbol = string(r.grid.CharAt(pos))
	}
	return fmt.Sprintf("is cleaning [%d,%d]: %s", pos.X, pos.Y, symbol)
}
