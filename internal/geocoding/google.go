package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/thunders/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding and places services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the part of *maps.Client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	PlaceAutocomplete(ctx context.Context, r *maps.PlaceAutocompleteRequest) (maps.AutocompleteResponse, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = fmt.Errorf("%w: get empty response from Google Maps API", ErrNoResults)

// NewGoogleProvider wraps an already configured Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode takes a context and an address string as input, and returns the geographical coordinates
// of the first result of the Google Maps Geocoding API.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

// Suggest returns place autocomplete predictions for a partial address.
func (gp *GoogleProvider) Suggest(
	ctx context.Context,
	input string,
	opts SuggestOptions,
) ([]models.Suggestion, error) {
	gp.log.DebugContext(ctx, "Autocomplete using Google Places", "input", input)

	req := maps.PlaceAutocompleteRequest{Input: input}
	if opts.Origin != nil {
		req.Location = &maps.LatLng{Lat: opts.Origin.Latitude, Lng: opts.Origin.Longitude}
		if opts.RadiusMeters > 0 {
			req.Radius = uint(opts.RadiusMeters)
		}
	}

	resp, err := gp.client.PlaceAutocomplete(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to autocomplete input: %w", err)
	}

	suggestions := make([]models.Suggestion, 0, len(resp.Predictions))
	for _, prediction := range resp.Predictions {
		if opts.Limit > 0 && len(suggestions) == opts.Limit {
			break
		}
		suggestions = append(suggestions, models.Suggestion{
			ID:          prediction.PlaceID,
			Description: prediction.Description,
		})
	}

	return suggestions, nil
}

// Reverse returns the formatted address of the first reverse geocoding result.
func (gp *GoogleProvider) Reverse(ctx context.Context, coords models.Coordinates) (string, error) {
	gp.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "lat", coords.Latitude, "lng", coords.Longitude)

	req := maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: coords.Latitude, Lng: coords.Longitude}}
	results, err := gp.client.ReverseGeocode(ctx, &req)
	if err != nil {
		return "", fmt.Errorf("failed to reverse geocode coordinates: %w", err)
	}

	if len(results) == 0 || results[0].FormattedAddress == "" {
		return "", ErrEmptyResponse
	}

	return results[0].FormattedAddress, nil
}
