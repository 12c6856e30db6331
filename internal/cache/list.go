package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// QueryKey identifies the sighting list query.
const QueryKey = "sightings"

// Fetcher loads the authoritative sighting list from the store.
type Fetcher interface {
	ListSightings(ctx context.Context) ([]models.Sighting, error)
}

// ListCache holds the client-side copy of the sighting list. All state changes go through Set,
// Invalidate, Refetch and CancelPendingFetch; subscribers are told about changes through Updates.
type ListCache struct {
	log     *slog.Logger
	fetcher Fetcher
	baseCtx context.Context // bounds background refetches

	mu         sync.Mutex
	data       []models.Sighting
	loaded     bool
	stale      bool
	generation uint64
	cancel     context.CancelFunc

	group   singleflight.Group
	updates chan struct{}
	wg      sync.WaitGroup
}

// NewListCache creates an empty, stale cache. Background refetches are cancelled when ctx is done.
func NewListCache(ctx context.Context, log *slog.Logger, fetcher Fetcher) *ListCache {
	return &ListCache{
		log:     log,
		fetcher: fetcher,
		baseCtx: ctx,
		stale:   true,
		updates: make(chan struct{}, 1),
	}
}

// Get returns a copy of the cached list. It is empty before the first load.
func (c *ListCache) Get() []models.Sighting {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.data)
}

// Set replaces the cached list with producer(previous). producer receives a copy it may modify.
func (c *ListCache) Set(producer func(prev []models.Sighting) []models.Sighting) {
	c.mu.Lock()
	c.data = producer(slices.Clone(c.data))
	c.mu.Unlock()

	c.notify()
}

// Stale reports whether the cached list is known to be out of date.
func (c *ListCache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stale
}

// Loaded reports whether the list was fetched from the store at least once.
func (c *ListCache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loaded
}

// Updates delivers a signal after every change. Signals are coalesced: a reader that falls behind
// sees a single pending notification.
func (c *ListCache) Updates() <-chan struct{} {
	return c.updates
}

// Wait blocks until every background refetch started by Invalidate has finished.
func (c *ListCache) Wait() {
	c.wg.Wait()
}

// CancelPendingFetch suppresses any refetch currently in flight. Its result, if it still arrives,
// is discarded.
func (c *ListCache) CancelPendingFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
}

// Invalidate marks the list stale and refetches it in the background. A refetch started earlier
// is superseded.
func (c *ListCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.stale = true
	c.cancelLocked()
	fetchCtx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	generation := c.generation
	c.mu.Unlock()

	c.log.DebugContext(ctx, "Sighting list invalidated", "generation", generation)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		list, err := c.fetcher.ListSightings(fetchCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.log.DebugContext(ctx, "Sighting refetch cancelled", "generation", generation)
				return
			}
			c.log.WarnContext(ctx, "Failed to refetch sightings", "error", err)
			return
		}
		c.apply(generation, list, false)
	}()
}

// Refetch loads the list synchronously. Concurrent callers share a single request.
// When a mutation cancels pending fetches meanwhile, the fetched list is still merged under the
// current entries and the cache stays stale until the next invalidation settles.
func (c *ListCache) Refetch(ctx context.Context) error {
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	_, err, _ := c.group.Do(QueryKey, func() (any, error) {
		list, err := c.fetcher.ListSightings(ctx)
		if err != nil {
			return nil, err
		}
		c.apply(generation, list, true)
		return nil, nil
	})
	if err != nil {
		c.log.WarnContext(ctx, "Failed to fetch sightings", "error", err)
		return fmt.Errorf("failed to fetch sightings: %w", err)
	}

	return nil
}

func (c *ListCache) cancelLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// apply stores a fetched list. Pending entries missing from the fetched list are kept so a
// refetch never erases an in-flight optimistic write. A superseded background fetch is discarded;
// a superseded synchronous fetch only adds the entries the cache does not hold yet.
func (c *ListCache) apply(generation uint64, fetched []models.Sighting, mergeSuperseded bool) {
	c.mu.Lock()
	superseded := generation != c.generation
	if superseded && !mergeSuperseded {
		c.mu.Unlock()
		c.log.Debug("Discarding superseded sighting list", "generation", generation)
		return
	}

	known := make(map[uuid.UUID]struct{}, len(fetched))
	for _, s := range fetched {
		known[s.ID] = struct{}{}
	}

	merged := slices.Clone(fetched)
	for _, s := range c.data {
		if _, ok := known[s.ID]; !ok && (s.Pending || superseded) {
			merged = append(merged, s)
		}
	}

	c.data = merged
	c.loaded = true
	c.stale = superseded
	c.mu.Unlock()

	c.notify()
}

func (c *ListCache) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
