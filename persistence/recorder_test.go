package persistence

import (
	"errors"
	"sort"
	"testing"
	"time"

	"cleanbot/server/messages"
	"cleanbot/server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore holds SaveRun until release is closed
type blockingStore struct {
	*JSONStore
	entered chan string
	release chan struct{}
}

func (s *blockingStore) SaveRun(report *models.RunReport) error {
	s.entered <- report.ID
	<-s.release
	return s.JSONStore.SaveRun(report)
}

func created(id string) messages.Event {
	return messages.Event{Type: messages.MessageTypeCreated, AgentID: id, Payload: messages.CreatedPayload{Map: [][]string{{" "}}}}
}

func terminated(id string) messages.Event {
	return messages.Event{Type: messages.MessageTypeTerminated, AgentID: id, Payload: messages.TerminatedPayload{Reason: messages.ReasonStopped}}
}

func pendingIDs(rec *Recorder) []string {
	ids := make([]string, 0, len(rec.pending))
	for id := range rec.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestRecorder_SavesReportOnTermination(t *testing.T) {
	store, _ := newTestStore(t)
	rec := NewRecorder(store, 8)
	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	rec.Publish(messages.Event{
		Type:    messages.MessageTypeCreated,
		AgentID: "bot-1",
		Payload: messages.CreatedPayload{
			Map:       [][]string{{"#", " ", "#"}},
			Pos:       models.Position{X: 1, Y: 0},
			StartedAt: started,
		},
	})
	rec.Publish(messages.Event{
		Type:    messages.MessageTypeProgress,
		AgentID: "bot-1",
		Payload: messages.ProgressPayload{},
	})
	rec.Publish(messages.Event{
		Type:    messages.MessageTypeTerminated,
		AgentID: "bot-1",
		Payload: messages.TerminatedPayload{
			Reason:          messages.ReasonStuck,
			Message:         "stuck",
			CleanedFloorMap: map[string]models.TileStatus{"1_0": {Cleaned: 26}},
			ElapsedTime:     5000,
			Ticks:           25,
			Cleaned:         1,
			Total:           1,
		},
	})
	rec.Close()

	report, err := store.LoadRun("bot-1")
	require.NoError(t, err)
	assert.Equal(t, "# #", report.Map)
	assert.Equal(t, messages.ReasonStuck, report.Reason)
	assert.Equal(t, 25, report.Ticks)
	assert.Equal(t, int64(5000), report.ElapsedMs)
	assert.Equal(t, 26, report.Ledger["1_0"].Cleaned)
	assert.True(t, started.Equal(report.StartedAt), report.StartedAt)
	assert.True(t, started.Add(5*time.Second).Equal(report.FinishedAt), report.FinishedAt)
}

func TestRecorder_TerminationWithoutCreatedDerivesStart(t *testing.T) {
	store, _ := newTestStore(t)
	rec := NewRecorder(store, 8)
	finished := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return finished }

	rec.Publish(messages.Event{
		Type:    messages.MessageTypeTerminated,
		AgentID: "bot-2",
		Payload: messages.TerminatedPayload{Reason: messages.ReasonComplete, ElapsedTime: 1200},
	})
	rec.Close()

	report, err := store.LoadRun("bot-2")
	require.NoError(t, err)
	assert.True(t, finished.Equal(report.FinishedAt), report.FinishedAt)
	assert.True(t, finished.Add(-1200*time.Millisecond).Equal(report.StartedAt), report.StartedAt)
}

func TestRecorder_LostTerminationReleasesPendingReport(t *testing.T) {
	base, _ := newTestStore(t)
	store := &blockingStore{JSONStore: base, entered: make(chan string, 1), release: make(chan struct{})}
	rec := NewRecorder(store, 2)

	// bot-b is handled before the worker blocks saving bot-a.
	rec.Publish(created("bot-b"))
	rec.Publish(created("bot-a"))
	rec.Publish(terminated("bot-a"))
	select {
	case id := <-store.entered:
		require.Equal(t, "bot-a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started saving bot-a")
	}

	// bot-c and bot-d fill the queue, so neither termination below gets in.
	rec.sendTimeout = 20 * time.Millisecond
	rec.Publish(created("bot-c"))
	rec.Publish(created("bot-d"))
	rec.Publish(terminated("bot-b"))
	rec.Publish(terminated("bot-c"))

	close(store.release)
	rec.Close()

	assert.Equal(t, []string{"bot-d"}, pendingIDs(rec))
	assert.Empty(t, rec.abandoned)
	assert.Empty(t, rec.unseen)

	_, err := base.LoadRun("bot-a")
	assert.NoError(t, err)
	for _, id := range []string{"bot-b", "bot-c"} {
		_, err := base.LoadRun(id)
		assert.True(t, errors.Is(err, ErrNotFound), id)
	}
}

func TestRecorder_DroppedCreatedLeavesNoMarks(t *testing.T) {
	base, _ := newTestStore(t)
	store := &blockingStore{JSONStore: base, entered: make(chan string, 1), release: make(chan struct{})}
	rec := NewRecorder(store, 1)

	rec.Publish(terminated("bot-a"))
	<-store.entered

	// bot-x takes the only slot; bot-y loses both of its events.
	rec.sendTimeout = 20 * time.Millisecond
	rec.Publish(created("bot-x"))
	rec.Publish(created("bot-y"))
	rec.Publish(terminated("bot-y"))

	close(store.release)
	rec.Close()

	assert.Equal(t, []string{"bot-x"}, pendingIDs(rec))
	assert.Empty(t, rec.abandoned)
	assert.Empty(t, rec.unseen)
}

func TestRecorder_IgnoresEventsAfterClose(t *testing.T) {
	store, _ := newTestStore(t)
	rec := NewRecorder(store, 1)
	rec.Close()
	rec.Close()

	rec.Publish(messages.Event{
		Type:    messages.MessageTypeTerminated,
		AgentID: "late",
		Payload: messages.TerminatedPayload{Reason: messages.ReasonStopped},
	})

	_, err := store.LoadRun("late")
	assert.True(t, errors.Is(err, ErrNotFound))
}
