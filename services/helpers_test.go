package services

import (
	"sync"
	"time"

	"cleanbot/server/messages"
)

// recordingSink keeps every published event
type recordingSink struct {
	mu     sync.Mutex
	events []messages.Event
}

func (s *recordingSink) Publish(event messages.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []messages.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messages.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) OfType(t messages.MessageType) []messages.Event {
	var out []messages.Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// manualClock only moves when the test advances it
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
	created chan *manualTicker
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start, created: make(chan *manualTicker, 16)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	c.created <- t
	return t
}

// Advance moves time forward and delivers one tick to every live ticker,
// blocking until each has been received or stopped.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*manualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		select {
		case t.ch <- now:
		case <-t.stopped:
		}
	}
}

type manualTicker struct {
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// fixedRand always returns the same index, clamped to n
type fixedRand int

func (f fixedRand) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}
