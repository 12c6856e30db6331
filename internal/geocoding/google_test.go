package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("api return empty response", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		require.ErrorIs(t, err, geocoding.ErrNoResults)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		address := "Geneva, Switzerland"
		req := &maps.GeocodingRequest{Address: address}
		mockResponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 46.2044, Lng: 6.1432}}},
		}

		mockClient.On("Geocode", ctx, req).Return(mockResponse, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, coords)
		require.InEpsilon(t, 46.2044, coords.Latitude, 0.01)
		require.InEpsilon(t, 6.1432, coords.Longitude, 0.01)
	})
}

func TestGoogleSuggest(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()
	origin := &models.Coordinates{Latitude: 46.201339, Longitude: 6.147120}

	t.Run("biased request", func(t *testing.T) {
		req := &maps.PlaceAutocompleteRequest{
			Input:    "Genev",
			Location: &maps.LatLng{Lat: origin.Latitude, Lng: origin.Longitude},
			Radius:   200000,
		}
		resp := maps.AutocompleteResponse{Predictions: []maps.AutocompletePrediction{
			{PlaceID: "p1", Description: "Geneva, Switzerland"},
			{PlaceID: "p2", Description: "Geneva Airport, Switzerland"},
			{PlaceID: "p3", Description: "Genève-Cornavin, Switzerland"},
		}}

		mockClient.On("PlaceAutocomplete", ctx, req).Return(resp, nil).Once()

		suggestions, err := provider.Suggest(ctx, "Genev", geocoding.SuggestOptions{
			Origin: origin, RadiusMeters: 200000, Limit: 2,
		})

		require.NoError(t, err)
		assert.Equal(t, []models.Suggestion{
			{ID: "p1", Description: "Geneva, Switzerland"},
			{ID: "p2", Description: "Geneva Airport, Switzerland"},
		}, suggestions)
	})

	t.Run("api returns error", func(t *testing.T) {
		req := &maps.PlaceAutocompleteRequest{Input: "x"}

		mockClient.On("PlaceAutocomplete", ctx, req).Return(nil, assert.AnError).Once()

		suggestions, err := provider.Suggest(ctx, "x", geocoding.SuggestOptions{})

		require.Nil(t, suggestions)
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestGoogleReverse(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()
	coords := models.Coordinates{Latitude: 46.20, Longitude: 6.15}
	req := &maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: 46.20, Lng: 6.15}}

	t.Run("formatted address", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).
			Return([]maps.GeocodingResult{{FormattedAddress: "Rue du Rhône, Genève"}}, nil).Once()

		place, err := provider.Reverse(ctx, coords)

		require.NoError(t, err)
		assert.Equal(t, "Rue du Rhône, Genève", place)
	})

	t.Run("no result", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return([]maps.GeocodingResult{}, nil).Once()

		_, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrNoResults)
	})

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, assert.AnError)
	})
}
