package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/test/mocks"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProcessBatch(t *testing.T) {
	mockRepo := mocks.NewInterface(t)
	mockProvider := mocks.NewProvider(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	ctx := t.Context()
	service := NewLabelService(logger, mockRepo, mockProvider, "google", appMetrics, 2, time.Second)

	t.Run("successful processing", func(t *testing.T) {
		task := models.LabelTask{ID: uuid.New(), Coords: models.Coordinates{Latitude: 46.2, Longitude: 6.15}}

		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return([]models.LabelTask{task}, nil).Once()
		mockProvider.On("Reverse", ctx, task.Coords).Return("Plainpalais, Genève", nil).Once()
		mockRepo.On("UpdateSightingPlace", ctx, task.ID, "Plainpalais, Genève").Return(nil).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.PlacesLabelled.WithLabelValues("success")), 0)
	})

	t.Run("fetch sightings returns error", func(t *testing.T) {
		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return(nil, assert.AnError).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
	})

	t.Run("fetch sightings returns empty list", func(t *testing.T) {
		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return([]models.LabelTask{}, nil).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
	})

	t.Run("provider returns error", func(t *testing.T) {
		task := models.LabelTask{ID: uuid.New(), Coords: models.Coordinates{Latitude: 0, Longitude: 0}}
		reverseErr := errors.New("reverse geocoding failed")

		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return([]models.LabelTask{task}, nil).Once()
		mockProvider.On("Reverse", ctx, task.Coords).Return("", reverseErr).Once()
		mockRepo.On("IncrementFailureCount", ctx, task.ID, reverseErr.Error()).Return(nil).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.PlacesLabelled.WithLabelValues("failure")), 0)
	})

	t.Run("error to increment failure count", func(t *testing.T) {
		task := models.LabelTask{ID: uuid.New(), Coords: models.Coordinates{Latitude: 1, Longitude: 1}}
		reverseErr := errors.New("reverse geocoding failed")

		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return([]models.LabelTask{task}, nil).Once()
		mockProvider.On("Reverse", ctx, task.Coords).Return("", reverseErr).Once()
		mockRepo.On("IncrementFailureCount", ctx, task.ID, reverseErr.Error()).Return(assert.AnError).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
	})

	t.Run("error to update place", func(t *testing.T) {
		task := models.LabelTask{ID: uuid.New(), Coords: models.Coordinates{Latitude: 2, Longitude: 2}}

		mockRepo.On("FetchSightingsForLabelling", ctx, 100).Return([]models.LabelTask{task}, nil).Once()
		mockProvider.On("Reverse", ctx, task.Coords).Return("Somewhere", nil).Once()
		mockRepo.On("UpdateSightingPlace", ctx, task.ID, "Somewhere").Return(assert.AnError).Once()

		service.processBatch(ctx)

		mockRepo.AssertExpectations(t)
		mockProvider.AssertExpectations(t)
	})

	t.Run("run stops with context", func(t *testing.T) {
		tctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()

		service.Run(tctx)
	})
}
