package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/internal/repository"
	"github.com/google/uuid"
)

// SightingService validates and persists sightings. The creation time of every stored sighting
// is stamped by the server clock; a client supplied id is kept so retries stay idempotent.
type SightingService struct {
	log     *slog.Logger
	repo    repository.Interface
	metrics *metrics.Metrics
	now     func() time.Time
}

// CreateSightingInput is what a client sends to record a sighting.
type CreateSightingInput struct {
	ID     uuid.UUID // ID is optional; uuid.Nil asks the server to generate one.
	Coords models.Coordinates
}

// NewSightingService creates a SightingService using the wall clock.
func NewSightingService(log *slog.Logger, repo repository.Interface, metrics *metrics.Metrics) *SightingService {
	return &SightingService{log: log, repo: repo, metrics: metrics, now: time.Now}
}

// List returns all stored sightings, oldest first.
func (s *SightingService) List(ctx context.Context) ([]models.Sighting, error) {
	sightings, err := s.repo.ListSightings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sightings: %w", err)
	}

	return sightings, nil
}

// Create validates the coordinates and stores a new sighting.
func (s *SightingService) Create(ctx context.Context, input CreateSightingInput) (models.Sighting, error) {
	if err := input.Coords.Validate(); err != nil {
		s.metrics.SightingsCreated.WithLabelValues("invalid").Inc()
		return models.Sighting{}, err
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	stored, err := s.repo.CreateSighting(ctx, models.Sighting{
		ID:        id,
		Latitude:  input.Coords.Latitude,
		Longitude: input.Coords.Longitude,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.metrics.SightingsCreated.WithLabelValues("failure").Inc()
		return models.Sighting{}, fmt.Errorf("failed to create sighting: %w", err)
	}

	s.metrics.SightingsCreated.WithLabelValues("success").Inc()
	s.log.InfoContext(ctx, "Sighting recorded", "id", stored.ID, "lat", stored.Latitude, "lng", stored.Longitude)

	return stored, nil
}
