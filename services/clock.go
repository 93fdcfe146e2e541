package services

import "time"

// DefaultTickInterval is the period between simulation ticks
const DefaultTickInterval = 200 * time.Millisecond

// ProductivityWindow is how long new-tile counts accumulate before they are reported
const ProductivityWindow = time.Second

// Clock is the time source for simulation runs
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock uses the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// NewTicker wraps time.NewTicker
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// TickState carries the time accounting of a run between ticks
type TickState struct {
	Ticks            int
	Last             time.Time
	Elapsed          time.Duration
	WindowElapsed    time.Duration
	WindowNewCleaned int
	Productivity     int
}

// Advance accounts for the time passed since the previous tick
func (s *TickState) Advance(now time.Time) {
	delta := now.Sub(s.Last)
	if delta < 0 {
		delta = 0
	}
	s.Last = now
	s.Elapsed += delta
	s.WindowElapsed += delta
	s.Ticks++
}

// RecordCleaned adds newly cleaned tiles to the window and rolls the window
// over once it has covered ProductivityWindow.
func (s *TickState) RecordCleaned(n int) {
	s.WindowNewCleaned += n
	if s.WindowElapsed >= ProductivityWindow {
		s.Productivity = s.WindowNewCleaned
		s.WindowNewCleaned = 0
		s.WindowElapsed = 0
	}
}
