package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/internal/repository"
)

// LabelService periodically attaches a human-readable place to new sightings by reverse geocoding
// their coordinates. Failures are counted per sighting; a sighting is skipped after
// repository.MaxLabelAttempts failures.
type LabelService struct {
	log          *slog.Logger         // Logger for logging service activities
	repo         repository.Interface // Interface for data repository access
	provider     geocoding.Provider   // Geocoding provider used for reverse lookups
	providerName string               // Name of the provider for metrics labeling
	metrics      *metrics.Metrics     // Metrics for tracking service performance
	numWorkers   int                  // Number of concurrent workers for processing
	pollInterval time.Duration        // Interval for polling unlabelled sightings
	batchSize    int                  // Maximum number of sightings fetched per poll
}

// NewLabelService creates a new instance of LabelService.
func NewLabelService(
	log *slog.Logger,
	repo repository.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	numWorkers int,
	pollInterval time.Duration,
) *LabelService {
	const batchSize = 100

	return &LabelService{
		log:          log,
		repo:         repo,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Run starts the labelling loop, which periodically polls for unlabelled sightings.
// It listens for a cancellation signal from the context to gracefully stop the service.
func (ls *LabelService) Run(ctx context.Context) {
	ticker := time.NewTicker(ls.pollInterval)
	defer ticker.Stop()

	ls.log.InfoContext(ctx, "Place labelling service started...")

	for {
		select {
		case <-ctx.Done():
			ls.log.InfoContext(ctx, "Place labelling service stopped.")
			return
		case <-ticker.C:
			ls.log.DebugContext(ctx, "Polling for sightings without a place...")
			ls.processBatch(ctx)
		}
	}
}

// processBatch fetches unlabelled sightings, starts a worker pool to label them,
// and waits for all workers to finish.
func (ls *LabelService) processBatch(ctx context.Context) {
	tasks, err := ls.repo.FetchSightingsForLabelling(ctx, ls.batchSize)
	if err != nil {
		ls.log.ErrorContext(ctx, "Failed to fetch sightings for labelling", "error", err)
		return
	}
	if len(tasks) == 0 {
		ls.log.DebugContext(ctx, "No sightings to label.")
		return
	}

	ls.log.InfoContext(ctx, "Found sightings to label. Starting worker pool.",
		"jobs", len(tasks),
		"num_workers", ls.numWorkers,
	)

	jobs := make(chan models.LabelTask, len(tasks))
	var wgr sync.WaitGroup

	for i := 1; i <= ls.numWorkers; i++ {
		wgr.Add(1)
		go ls.worker(ctx, i, &wgr, jobs)
	}

	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)

	wgr.Wait()
	ls.log.InfoContext(ctx, "Labelling batch finished")
}

// worker reverse geocodes sightings from the jobs channel until it is closed.
func (ls *LabelService) worker(ctx context.Context, idx int, wg *sync.WaitGroup, jobs <-chan models.LabelTask) {
	defer wg.Done()
	for task := range jobs {
		ls.metrics.ActiveWorkers.Inc()
		ls.label(ctx, idx, task)
		ls.metrics.ActiveWorkers.Dec()
	}
}

func (ls *LabelService) label(ctx context.Context, idx int, task models.LabelTask) {
	ls.log.DebugContext(ctx, "Labelling sighting", "worker", idx, "sighting", task.ID)

	startTime := time.Now()
	place, err := ls.provider.Reverse(ctx, task.Coords)
	ls.metrics.RequestSeconds.WithLabelValues(ls.providerName, "reverse").Observe(time.Since(startTime).Seconds())

	if err != nil {
		ls.log.ErrorContext(ctx, "Failed to reverse geocode", "worker", idx, "sighting", task.ID, "error", err)
		ls.metrics.PlacesLabelled.WithLabelValues("failure").Inc()
		ls.metrics.APIErrors.Inc()

		if err = ls.repo.IncrementFailureCount(ctx, task.ID, err.Error()); err != nil {
			ls.log.ErrorContext(ctx, "Could not update failure count for sighting",
				"worker", idx,
				"sighting", task.ID,
				"error", err,
			)
		}
		return
	}

	ls.metrics.PlacesLabelled.WithLabelValues("success").Inc()

	if err = ls.repo.UpdateSightingPlace(ctx, task.ID, place); err != nil {
		ls.log.ErrorContext(ctx, "Failed to update place for sighting",
			"worker", idx,
			"sighting", task.ID,
			"error", err,
		)
		return
	}

	ls.log.DebugContext(ctx, "Worker successfully labelled the sighting", "worker", idx, "sighting", task.ID)
}
