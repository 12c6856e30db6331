package geocoding_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	logger := slog.Default()

	t.Run("create Google provider successfully", func(t *testing.T) {
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:      geocoding.ProviderTypeGoogle,
			APIKey:    "test-api-key",
			RateLimit: 10,
			Logger:    logger,
		})

		require.NoError(t, err)
		_, ok := provider.(*geocoding.GoogleProvider)
		assert.True(t, ok, "expected provider to be *GoogleProvider")
	})

	t.Run("create Google provider without API key fails", func(t *testing.T) {
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:   geocoding.ProviderTypeGoogle,
			Logger: logger,
		})

		require.ErrorIs(t, err, geocoding.ErrMissingAPIKey)
		require.Nil(t, provider)
	})

	t.Run("create Google provider without rate limit", func(t *testing.T) {
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:   geocoding.ProviderTypeGoogle,
			APIKey: "test-api-key",
			Logger: logger,
		})

		require.NoError(t, err)
		require.NotNil(t, provider)
	})

	t.Run("create Nominatim provider without API key", func(t *testing.T) {
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:   geocoding.ProviderTypeNominatim,
			Logger: logger,
		})

		require.NoError(t, err)
		_, ok := provider.(*geocoding.NominatimProvider)
		assert.True(t, ok, "expected provider to be *NominatimProvider")
	})

	t.Run("create Nominatim provider for a self-hosted instance", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/reverse", r.URL.Path)
			_, _ = w.Write([]byte(`{"place_id":1,"display_name":"Geneva, Switzerland"}`))
		}))
		t.Cleanup(server.Close)

		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:    geocoding.ProviderTypeNominatim,
			BaseURL: server.URL,
			Timeout: time.Second,
			Logger:  logger,
		})
		require.NoError(t, err)

		place, err := provider.Reverse(t.Context(), models.Coordinates{Latitude: 46.2, Longitude: 6.15})
		require.NoError(t, err)
		assert.Equal(t, "Geneva, Switzerland", place)
	})

	t.Run("unsupported provider type", func(t *testing.T) {
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:   geocoding.ProviderType("mapbox"),
			Logger: logger,
		})

		require.Error(t, err)
		require.Nil(t, provider)
		assert.Contains(t, err.Error(), "unsupported provider type: mapbox")
	})
}

func TestGeocodeError(t *testing.T) {
	notFound := &geocoding.GeocodeError{Query: "Atlantis", Err: geocoding.ErrNominatimEmptyResponse}
	unreachable := &geocoding.GeocodeError{Query: "Geneva", Err: assert.AnError}

	assert.True(t, notFound.NotFound())
	assert.False(t, unreachable.NotFound())
	require.ErrorIs(t, unreachable, assert.AnError)
	assert.Contains(t, notFound.Error(), `failed to geocode "Atlantis"`)
}
