package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
)

// Store persists a new sighting and returns the stored record.
type Store interface {
	CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error)
}

// Notifier receives failures the user should be told about.
type Notifier interface {
	Notify(ctx context.Context, message string, err error)
}

// Mutation tracks one optimistic create.
type Mutation struct {
	ID       uuid.UUID
	Previous []models.Sighting // list as it was before the optimistic entry was added

	done chan struct{}
	err  error
}

// Done is closed once the write has settled and the list was invalidated.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Err waits for the write to settle and returns the store error, if any.
func (m *Mutation) Err() error {
	<-m.done
	return m.err
}

// Creator runs the optimistic create flow against a ListCache.
type Creator struct {
	log      *slog.Logger
	cache    *ListCache
	store    Store
	notifier Notifier
	now      func() time.Time

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewCreator creates a Creator. notifier may be nil.
func NewCreator(log *slog.Logger, cache *ListCache, store Store, notifier Notifier) *Creator {
	return &Creator{
		log:      log,
		cache:    cache,
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Mutate adds a pending sighting at coords to the cache and writes it to the store in the
// background. Invalid coordinates are rejected with models.ErrInvalidCoordinates before anything
// is applied. The write outlives cancellation of ctx; the store client's timeout bounds it.
func (cr *Creator) Mutate(ctx context.Context, coords models.Coordinates) (*Mutation, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	sighting := models.Sighting{
		ID:        uuid.New(),
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Pending:   true,
	}
	mutation := &Mutation{ID: sighting.ID, done: make(chan struct{})}

	cr.mu.Lock()
	cr.cache.CancelPendingFetch()
	mutation.Previous = cr.cache.Get()
	sighting.CreatedAt = cr.now()
	cr.cache.Set(func(prev []models.Sighting) []models.Sighting {
		return append(prev, sighting)
	})
	cr.mu.Unlock()

	cr.log.DebugContext(ctx, "Optimistic sighting added", "id", sighting.ID)

	cr.wg.Add(1)
	go cr.write(context.WithoutCancel(ctx), mutation, sighting)

	return mutation, nil
}

// Wait blocks until every write started by Mutate has settled. Refetches triggered by those
// writes are tracked by the ListCache.
func (cr *Creator) Wait() {
	cr.wg.Wait()
}

func (cr *Creator) write(ctx context.Context, mutation *Mutation, sighting models.Sighting) {
	defer cr.wg.Done()
	defer close(mutation.done)

	stored, err := cr.store.CreateSighting(ctx, sighting)
	if err != nil {
		cr.log.ErrorContext(ctx, "Failed to create sighting", "id", sighting.ID, "error", err)
		cr.cache.Set(func(prev []models.Sighting) []models.Sighting {
			return slices.DeleteFunc(prev, func(s models.Sighting) bool { return s.ID == sighting.ID })
		})
		if cr.notifier != nil {
			cr.notifier.Notify(ctx, "Could not save the sighting", err)
		}
	} else {
		stored.Pending = false
		cr.cache.Set(func(prev []models.Sighting) []models.Sighting {
			for i := range prev {
				if prev[i].ID == sighting.ID {
					prev[i] = stored
				}
			}
			return prev
		})
	}

	mutation.err = err
	cr.cache.Invalidate(ctx)
}
