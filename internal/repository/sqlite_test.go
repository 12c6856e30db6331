package repository_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	store, err := repository.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "db", "thunders.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStore_CreateAndList(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	store := openSQLite(t)
	base := time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

	later := models.Sighting{ID: uuid.New(), Latitude: 46.5, Longitude: 6.6, CreatedAt: base.Add(time.Minute)}
	earlier := models.Sighting{ID: uuid.New(), Latitude: 46.2, Longitude: 6.15, CreatedAt: base}

	_, err := store.CreateSighting(ctx, later)
	require.NoError(t, err)
	stored, err := store.CreateSighting(ctx, earlier)
	require.NoError(t, err)
	assert.Equal(t, earlier, stored)

	sightings, err := store.ListSightings(ctx)

	require.NoError(t, err)
	require.Len(t, sightings, 2)
	assert.Equal(t, earlier.ID, sightings[0].ID)
	assert.Equal(t, later.ID, sightings[1].ID)
	assert.Equal(t, base.Add(time.Minute), sightings[1].CreatedAt)
}

func TestSQLiteStore_CreateIsIdempotentPerID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	store := openSQLite(t)
	sighting := models.Sighting{ID: uuid.New(), Latitude: 46.2, Longitude: 6.15, CreatedAt: time.Now().UTC()}

	first, err := store.CreateSighting(ctx, sighting)
	require.NoError(t, err)

	retry := sighting
	retry.CreatedAt = sighting.CreatedAt.Add(time.Hour)
	second, err := store.CreateSighting(ctx, retry)
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	sightings, err := store.ListSightings(ctx)
	require.NoError(t, err)
	assert.Len(t, sightings, 1)
}

func TestSQLiteStore_Labelling(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	store := openSQLite(t)

	labelled := models.Sighting{ID: uuid.New(), Latitude: 46.2, Longitude: 6.15, CreatedAt: time.Now().UTC()}
	failing := models.Sighting{ID: uuid.New(), Latitude: 0, Longitude: 0, CreatedAt: time.Now().UTC()}
	for _, s := range []models.Sighting{labelled, failing} {
		_, err := store.CreateSighting(ctx, s)
		require.NoError(t, err)
	}

	tasks, err := store.FetchSightingsForLabelling(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	require.NoError(t, store.UpdateSightingPlace(ctx, labelled.ID, "Geneva, Switzerland"))
	for range repository.MaxLabelAttempts {
		require.NoError(t, store.IncrementFailureCount(ctx, failing.ID, "no result"))
	}

	tasks, err = store.FetchSightingsForLabelling(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	sightings, err := store.ListSightings(ctx)
	require.NoError(t, err)
	places := map[uuid.UUID]string{}
	for _, s := range sightings {
		places[s.ID] = s.Place
	}
	assert.Equal(t, "Geneva, Switzerland", places[labelled.ID])
	assert.Empty(t, places[failing.ID])
}

func TestSQLiteStore_Ping(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)

	require.NoError(t, store.Ping(t.Context()))
}
