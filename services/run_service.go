package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cleanbot/server/models"
)

// ErrRunNotFound is returned when no active run has the requested id
var ErrRunNotFound = errors.New("run not found")

// FinishedRunRetention is how long Status keeps answering for a run after it stops.
// It covers the gap before the recorder has stored the run's report.
const FinishedRunRetention = time.Minute

// RunSettings are the simulation parameters shared by every run of a service
type RunSettings struct {
	TickInterval time.Duration
	Termination  TerminationPolicy
	Parse        models.ParseOptions
	// Seed makes tie-breaks reproducible across a process; 0 seeds from the clock.
	Seed int64
}

// RunService creates and tracks the active cleaning runs
type RunService struct {
	settings RunSettings
	sink     EventSink
	ids      IDGenerator
	clock    Clock
	seq      atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	runs      map[string]*Run
	finished  map[string]finishedRun
	runsMutex sync.RWMutex
}

type finishedRun struct {
	status RunStatus
	at     time.Time
}

// ServiceOption customises a RunService
type ServiceOption func(*RunService)

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(ids IDGenerator) ServiceOption {
	return func(s *RunService) { s.ids = ids }
}

// WithClock replaces the system clock
func WithClock(clock Clock) ServiceOption {
	return func(s *RunService) { s.clock = clock }
}

// NewRunService creates a new run service publishing to sink
func NewRunService(settings RunSettings, sink EventSink, opts ...ServiceOption) *RunService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &RunService{
		settings: settings,
		sink:     sink,
		ids:      UUIDGenerator{},
		clock:    SystemClock{},
		ctx:      ctx,
		cancel:   cancel,
		runs:     make(map[string]*Run),
		finished: make(map[string]finishedRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type runOptions struct {
	seed    int64
	hasSeed bool
}

// RunOption customises a single run
type RunOption func(*runOptions)

// WithSeed fixes the random source of the run's movement policy
func WithSeed(seed int64) RunOption {
	return func(o *runOptions) {
		o.seed = seed
		o.hasSeed = true
	}
}

// CreateRun parses mapText, starts a run on it and returns the agent id
// without waiting for the run to finish.
func (s *RunService) CreateRun(mapText string, opts ...RunOption) (string, error) {
	grid, err := models.ParseGrid(mapText, s.settings.Parse)
	if err != nil {
		return "", err
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	seed := s.nextSeed()
	if o.hasSeed {
		seed = o.seed
	}

	id := s.ids.NewID()
	run := NewRun(id, grid, RunDeps{
		Policy:      NewMovementPolicy(rand.New(rand.NewSource(seed))),
		Termination: s.settings.Termination,
		Sink:        s.sink,
		Clock:       s.clock,
		Interval:    s.settings.TickInterval,
		OnStop:      s.forget,
	})

	s.runsMutex.Lock()
	s.runs[id] = run
	s.runsMutex.Unlock()

	run.Start(s.ctx)

	slog.Info("Started a new cleaning bot", "id", id, "seed", seed, "rows", grid.Height())
	return id, nil
}

func (s *RunService) nextSeed() int64 {
	n := s.seq.Add(1)
	if s.settings.Seed != 0 {
		return s.settings.Seed + n
	}
	return time.Now().UnixNano() + n
}

// forget moves a stopped run from the active set to the recently finished ones
func (s *RunService) forget(run *Run) {
	status := run.Status()
	now := s.clock.Now()

	s.runsMutex.Lock()
	defer s.runsMutex.Unlock()
	delete(s.runs, run.ID())
	for id, f := range s.finished {
		if now.Sub(f.at) >= FinishedRunRetention {
			delete(s.finished, id)
		}
	}
	s.finished[run.ID()] = finishedRun{status: status, at: now}
}

// Status returns the status of an active run, or the final status of one that
// stopped within FinishedRunRetention
func (s *RunService) Status(id string) (RunStatus, error) {
	s.runsMutex.RLock()
	run, active := s.runs[id]
	f, recent := s.finished[id]
	s.runsMutex.RUnlock()

	if active {
		return run.Status(), nil
	}
	if recent && s.clock.Now().Sub(f.at) < FinishedRunRetention {
		return f.status, nil
	}
	return RunStatus{}, ErrRunNotFound
}

// GetRun returns an active run by id
func (s *RunService) GetRun(id string) (*Run, error) {
	s.runsMutex.RLock()
	defer s.runsMutex.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the status of every active run, oldest first
func (s *RunService) ListRuns() []RunStatus {
	s.runsMutex.RLock()
	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.runsMutex.RUnlock()

	statuses := make([]RunStatus, 0, len(runs))
	for _, run := range runs {
		statuses = append(statuses, run.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].StartedAt.Equal(statuses[j].StartedAt) {
			return statuses[i].ID < statuses[j].ID
		}
		return statuses[i].StartedAt.Before(statuses[j].StartedAt)
	})
	return statuses
}

// ActiveIDs returns the ids of the active runs
func (s *RunService) ActiveIDs() []string {
	statuses := s.ListRuns()
	ids := make([]string, len(statuses))
	for i, st := range statuses {
		ids[i] = st.ID
	}
	return ids
}

// StopRun stops an active run
func (s *RunService) StopRun(id string) error {
	run, err := s.GetRun(id)
	if err != nil {
		return err
	}
	run.Stop()
	return nil
}

// Shutdown stops every active run and waits for them to finish or ctx to end
func (s *RunService) Shutdown(ctx context.Context) error {
	s.runsMutex.RLock()
	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.runsMutex.RUnlock()

	s.cancel()

	for _, run := range runs {
		run.Stop()
		select {
		case <-run.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
