package persistence

import (
	"errors"
	"os"
	"testing"
	"time"

	"cleanbot/server/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real database: TEST_DATABASE_URL="host=localhost user=... sslmode=disable"
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	store, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	name := "map-" + uuid.New().String()
	require.NoError(t, store.SaveMap(&models.MapTemplate{Name: name, Text: "# #", CreatedAt: now, UpdatedAt: now}))

	m, err := store.LoadMap(name)
	require.NoError(t, err)
	assert.Equal(t, "# #", m.Text)

	id := uuid.New().String()
	require.NoError(t, store.SaveRun(&models.RunReport{
		ID:         id,
		Map:        "# #",
		Reason:     "complete",
		Message:    "done",
		Ticks:      1,
		Cleaned:    1,
		Total:      1,
		Ledger:     map[string]models.TileStatus{"1_0": {Cleaned: 1}},
		StartedAt:  now,
		FinishedAt: now,
	}))

	report, err := store.LoadRun(id)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ledger["1_0"].Cleaned)

	reports, err := store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	_, err = store.LoadRun(uuid.New().String())
	assert.True(t, errors.Is(err, ErrNotFound))
}
