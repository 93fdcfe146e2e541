package persistence

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"cleanbot/server/messages"
	"cleanbot/server/models"
)

// DefaultRecorderSendTimeout bounds how long a terminated event waits for queue space
const DefaultRecorderSendTimeout = 5 * time.Second

// Recorder turns run lifecycle events into stored run reports.
// Events are queued and written by a single worker. Created events are dropped when
// the queue is full; terminated events wait up to sendTimeout for space first.
type Recorder struct {
	store       Storage
	now         func() time.Time
	queue       chan messages.Event
	pending     map[string]*models.RunReport
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// Runs whose created or terminated event never reached the queue.
	dropMu    sync.Mutex
	unseen    map[string]struct{}
	abandoned map[string]struct{}
}

// NewRecorder starts a recorder writing to store
func NewRecorder(store Storage, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		store:       store,
		now:         time.Now,
		queue:       make(chan messages.Event, buffer),
		pending:     make(map[string]*models.RunReport),
		sendTimeout: DefaultRecorderSendTimeout,
		unseen:      make(map[string]struct{}),
		abandoned:   make(map[string]struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Publish queues created and terminated events; progress events are ignored
func (r *Recorder) Publish(event messages.Event) {
	if event.Type != messages.MessageTypeCreated && event.Type != messages.MessageTypeTerminated {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	if event.Type == messages.MessageTypeCreated {
		select {
		case r.queue <- event:
		default:
			slog.Warn("Recorder queue full, dropping event", "id", event.AgentID, "type", event.Type)
			r.dropMu.Lock()
			r.unseen[event.AgentID] = struct{}{}
			r.dropMu.Unlock()
		}
		return
	}

	timer := time.NewTimer(r.sendTimeout)
	defer timer.Stop()
	select {
	case r.queue <- event:
		r.dropMu.Lock()
		delete(r.unseen, event.AgentID)
		r.dropMu.Unlock()
	case <-timer.C:
		slog.Error("Recorder queue blocked, run report lost", "id", event.AgentID, "timeout", r.sendTimeout)
		r.dropMu.Lock()
		if _, ok := r.unseen[event.AgentID]; ok {
			delete(r.unseen, event.AgentID)
		} else {
			r.abandoned[event.AgentID] = struct{}{}
		}
		r.dropMu.Unlock()
	}
}

// Close drains the queue and stops the worker
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for event := range r.queue {
		r.handle(event)
		r.prune()
	}
	r.prune()
}

// prune forgets pending reports whose terminated event was abandoned
func (r *Recorder) prune() {
	r.dropMu.Lock()
	defer r.dropMu.Unlock()
	for id := range r.abandoned {
		if _, ok := r.pending[id]; ok {
			delete(r.pending, id)
			delete(r.abandoned, id)
		}
	}
}

// isAbandoned reports whether id's terminated event was lost, clearing the mark
func (r *Recorder) isAbandoned(id string) bool {
	r.dropMu.Lock()
	defer r.dropMu.Unlock()
	if _, ok := r.abandoned[id]; ok {
		delete(r.abandoned, id)
		return true
	}
	return false
}

func (r *Recorder) handle(event messages.Event) {
	switch payload := event.Payload.(type) {
	case messages.CreatedPayload:
		if r.isAbandoned(event.AgentID) {
			return
		}
		started := payload.StartedAt
		if started.IsZero() {
			started = r.now()
		}
		r.pending[event.AgentID] = &models.RunReport{
			ID:        event.AgentID,
			Map:       joinRows(payload.Map),
			StartedAt: started,
		}

	case messages.TerminatedPayload:
		elapsed := time.Duration(payload.ElapsedTime) * time.Millisecond
		report, ok := r.pending[event.AgentID]
		if ok {
			report.FinishedAt = report.StartedAt.Add(elapsed)
		} else {
			finished := r.now()
			report = &models.RunReport{ID: event.AgentID, StartedAt: finished.Add(-elapsed), FinishedAt: finished}
		}
		delete(r.pending, event.AgentID)

		report.Reason = payload.Reason
		report.Message = payload.Message
		report.Ticks = payload.Ticks
		report.Cleaned = payload.Cleaned
		report.Total = payload.Total
		report.ElapsedMs = payload.ElapsedTime
		report.Productivity = payload.Productivity
		report.Ledger = payload.CleanedFloorMap

		if err := r.store.SaveRun(report); err != nil {
			slog.Error("Failed to save run report", "id", event.AgentID, "error", err)
		}
	}
}

func joinRows(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}
