package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cleanbot/server/models"
	"cleanbot/server/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapService(t *testing.T) (*MapService, *persistence.JSONStore) {
	t.Helper()
	store, err := persistence.NewJSONStore(filepath.Join(t.TempDir(), "maps.json"))
	require.NoError(t, err)
	return NewMapService(store, models.ParseOptions{}), store
}

func TestMapService_SaveAndGet(t *testing.T) {
	ms, store := newTestMapService(t)

	saved, err := ms.SaveMap(" office ", officeMap)
	require.NoError(t, err)
	assert.Equal(t, "office", saved.Name)

	got, err := ms.GetMap("office")
	require.NoError(t, err)
	assert.Equal(t, officeMap, got.Text)

	stored, err := store.LoadMap("office")
	require.NoError(t, err)
	assert.Equal(t, officeMap, stored.Text)
}

func TestMapService_LoadsFromStorage(t *testing.T) {
	ms, store := newTestMapService(t)
	require.NoError(t, store.SaveMap(&models.MapTemplate{Name: "hall", Text: "#####\n#   #\n#####"}))

	got, err := ms.GetMap("hall")
	require.NoError(t, err)
	assert.Equal(t, "#####\n#   #\n#####", got.Text)
}

func TestMapService_UpdateKeepsCreatedAt(t *testing.T) {
	ms, _ := newTestMapService(t)
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Hour)

	ms.now = func() time.Time { return first }
	_, err := ms.SaveMap("room", "###\n# #\n###")
	require.NoError(t, err)

	ms.now = func() time.Time { return second }
	updated, err := ms.SaveMap("room", "#####\n#   #\n#####")
	require.NoError(t, err)

	assert.Equal(t, first, updated.CreatedAt)
	assert.Equal(t, second, updated.UpdatedAt)
	assert.Equal(t, "#####\n#   #\n#####", updated.Text)
}

func TestMapService_Errors(t *testing.T) {
	ms, _ := newTestMapService(t)

	_, err := ms.GetMap("missing")
	assert.ErrorIs(t, err, ErrMapNotFound)

	_, err = ms.SaveMap("  ", officeMap)
	assert.ErrorIs(t, err, ErrInvalidMapName)

	_, err = ms.SaveMap("empty", "")
	var malformed *models.MalformedMapError
	assert.True(t, errors.As(err, &malformed))

	_, err = ms.GetMap("empty")
	assert.ErrorIs(t, err, ErrMapNotFound)
}
