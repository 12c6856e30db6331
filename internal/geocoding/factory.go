package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// ProviderType names a geocoding backend.
type ProviderType string

const (
	// ProviderTypeGoogle uses the Google Maps Geocoding and Places APIs, the same data the map widget shows.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim uses an OpenStreetMap Nominatim instance.
	ProviderTypeNominatim ProviderType = "nominatim"
)

// ErrMissingAPIKey is returned when a provider that needs a key is configured without one.
var ErrMissingAPIKey = errors.New("API key is required for Google provider")

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // APIKey is the map-service key, required by Google
	RateLimit int           // RateLimit in requests per second; zero keeps the provider default
	BaseURL   string        // BaseURL of a self-hosted Nominatim; empty means the public instance
	Timeout   time.Duration // Timeout of a single Nominatim request; zero means 10s
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates the geocoding provider selected by config.Type.
//
// The public Nominatim instance is always limited to one request per second by its usage policy;
// a self-hosted instance is only limited when RateLimit is set.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}

func newNominatimProvider(config ProviderConfig) *NominatimProvider {
	const defaultTimeout = 10 * time.Second

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := config.BaseURL
	var limiter *rate.Limiter
	switch {
	case baseURL == "":
		baseURL = NominatimBaseURL
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	case config.RateLimit > 0:
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, baseURL, limiter, config.Logger)
}
