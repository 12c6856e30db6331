package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/models"
)

// ErrEmptyQuery is returned when a suggestion or resolve request carries no text.
var ErrEmptyQuery = errors.New("empty address query")

// PlacesService fronts a geocoding provider for map clients: autocomplete suggestions biased around
// the map center, and resolution of a selected suggestion to a coordinate.
type PlacesService struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics
	bias         geocoding.SuggestOptions
}

// NewPlacesService creates a PlacesService. bias is applied to suggestions that do not carry their own.
func NewPlacesService(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	bias geocoding.SuggestOptions,
) *PlacesService {
	return &PlacesService{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		bias:         bias,
	}
}

// Suggest returns ranked predictions for a partial address. Zero values in opts fall back to the
// configured bias.
func (ps *PlacesService) Suggest(
	ctx context.Context,
	input string,
	opts geocoding.SuggestOptions,
) ([]models.Suggestion, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyQuery
	}

	if opts.Origin == nil {
		opts.Origin = ps.bias.Origin
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = ps.bias.RadiusMeters
	}
	if opts.Limit <= 0 {
		opts.Limit = ps.bias.Limit
	}

	startTime := time.Now()
	suggestions, err := ps.provider.Suggest(ctx, input, opts)
	ps.observe("suggest", startTime)
	if err != nil {
		ps.metrics.APIErrors.Inc()
		return nil, &geocoding.GeocodeError{Query: input, Err: err}
	}

	return suggestions, nil
}

// Resolve turns a selected address into a coordinate. Every failure is a *geocoding.GeocodeError.
func (ps *PlacesService) Resolve(ctx context.Context, address string) (*models.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &geocoding.GeocodeError{Query: address, Err: ErrEmptyQuery}
	}

	startTime := time.Now()
	coords, err := ps.provider.Geocode(ctx, address)
	ps.observe("geocode", startTime)
	if err != nil {
		if !errors.Is(err, geocoding.ErrNoResults) {
			ps.metrics.APIErrors.Inc()
		}
		ps.log.WarnContext(ctx, "Failed to resolve address", "address", address, "error", err)
		return nil, &geocoding.GeocodeError{Query: address, Err: err}
	}

	if err = coords.Validate(); err != nil {
		return nil, &geocoding.GeocodeError{Query: address, Err: err}
	}

	return coords, nil
}

func (ps *PlacesService) observe(operation string, startTime time.Time) {
	ps.metrics.RequestSeconds.WithLabelValues(ps.providerName, operation).Observe(time.Since(startTime).Seconds())
}
