package cache_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/thunders/internal/cache"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/test/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var serverTime = time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC)

func storedSighting(lat, lng float64) models.Sighting {
	return models.Sighting{ID: uuid.New(), Latitude: lat, Longitude: lng, CreatedAt: serverTime}
}

func TestListCache_Refetch(t *testing.T) {
	t.Run("loads the store list", func(t *testing.T) {
		store := mocks.NewInterface(t)
		list := []models.Sighting{storedSighting(46.2, 6.15), storedSighting(46.5, 6.6)}
		store.On("ListSightings", mock.Anything).Return(list, nil).Once()

		lc := cache.NewListCache(t.Context(), slog.Default(), store)
		assert.Empty(t, lc.Get())
		assert.True(t, lc.Stale())

		require.NoError(t, lc.Refetch(t.Context()))

		assert.Equal(t, list, lc.Get())
		assert.True(t, lc.Loaded())
		assert.False(t, lc.Stale())

		select {
		case <-lc.Updates():
		default:
			t.Fatal("expected an update notification")
		}
	})

	t.Run("failure keeps previous value", func(t *testing.T) {
		store := mocks.NewInterface(t)
		store.On("ListSightings", mock.Anything).Return(nil, assert.AnError).Once()

		lc := cache.NewListCache(t.Context(), slog.Default(), store)
		kept := storedSighting(1, 1)
		lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, kept) })

		err := lc.Refetch(t.Context())

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []models.Sighting{kept}, lc.Get())
		assert.True(t, lc.Stale())
		assert.False(t, lc.Loaded())
	})
}

func TestListCache_RefetchSupersededByMutation(t *testing.T) {
	store := mocks.NewInterface(t)
	started := make(chan struct{})
	release := make(chan struct{})
	stored := storedSighting(46.2, 6.15)
	store.On("ListSightings", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]models.Sighting{stored}, nil).Once()

	lc := cache.NewListCache(t.Context(), slog.Default(), store)
	errCh := make(chan error, 1)
	go func() { errCh <- lc.Refetch(t.Context()) }()
	<-started

	optimistic := storedSighting(46.5, 6.6)
	optimistic.Pending = true
	lc.CancelPendingFetch()
	lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, optimistic) })
	close(release)

	require.NoError(t, <-errCh)
	assert.Equal(t, []models.Sighting{stored, optimistic}, lc.Get())
	assert.True(t, lc.Loaded())
	assert.True(t, lc.Stale(), "the invalidation after the write still has to settle")
}

func TestListCache_Set(t *testing.T) {
	lc := cache.NewListCache(t.Context(), slog.Default(), mocks.NewInterface(t))
	first := storedSighting(1, 2)
	second := storedSighting(3, 4)

	lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, first) })
	lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, second) })

	assert.Equal(t, []models.Sighting{first, second}, lc.Get())

	lc.Set(func([]models.Sighting) []models.Sighting { return nil })
	assert.Empty(t, lc.Get())
}

func TestListCache_Invalidate(t *testing.T) {
	t.Run("replaces list in background", func(t *testing.T) {
		store := mocks.NewInterface(t)
		list := []models.Sighting{storedSighting(46.2, 6.15)}
		store.On("ListSightings", mock.Anything).Return(list, nil).Once()

		lc := cache.NewListCache(t.Context(), slog.Default(), store)
		lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, storedSighting(0, 0)) })

		lc.Invalidate(t.Context())
		lc.Wait()

		assert.Equal(t, list, lc.Get())
		assert.False(t, lc.Stale())
	})

	t.Run("keeps pending entries missing from the store", func(t *testing.T) {
		store := mocks.NewInterface(t)
		list := []models.Sighting{storedSighting(46.2, 6.15)}
		store.On("ListSightings", mock.Anything).Return(list, nil).Once()

		lc := cache.NewListCache(t.Context(), slog.Default(), store)
		pending := storedSighting(10, 10)
		pending.Pending = true
		lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, pending) })

		lc.Invalidate(t.Context())
		lc.Wait()

		assert.Equal(t, []models.Sighting{list[0], pending}, lc.Get())
	})

	t.Run("failed refetch leaves cache stale", func(t *testing.T) {
		store := mocks.NewInterface(t)
		store.On("ListSightings", mock.Anything).Return(nil, assert.AnError).Once()

		lc := cache.NewListCache(t.Context(), slog.Default(), store)

		lc.Invalidate(t.Context())
		lc.Wait()

		assert.True(t, lc.Stale())
		assert.Empty(t, lc.Get())
	})
}

func TestListCache_CancelPendingFetch(t *testing.T) {
	store := mocks.NewInterface(t)
	release := make(chan struct{})
	store.On("ListSightings", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]models.Sighting{storedSighting(5, 5)}, nil).Once()

	lc := cache.NewListCache(t.Context(), slog.Default(), store)
	optimistic := storedSighting(1, 1)

	lc.Invalidate(t.Context())
	lc.CancelPendingFetch()
	lc.Set(func(prev []models.Sighting) []models.Sighting { return append(prev, optimistic) })
	close(release)
	lc.Wait()

	assert.Equal(t, []models.Sighting{optimistic}, lc.Get())
	assert.True(t, lc.Stale())
}

func TestListCache_CancelledRefetchIsNotAWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := mocks.NewInterface(t)
	started := make(chan struct{})
	store.On("ListSightings", mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	lc := cache.NewListCache(t.Context(), logger, store)

	lc.Invalidate(t.Context())
	<-started
	lc.CancelPendingFetch()
	lc.Wait()

	assert.Contains(t, logs.String(), "Sighting refetch cancelled")
	assert.NotContains(t, logs.String(), "level=WARN")
}
