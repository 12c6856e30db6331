package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/paulmach/orb/geo"
	"golang.org/x/time/rate"
)

// NominatimBaseURL is the public OpenStreetMap Nominatim endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Limiter enforces the fair use policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimPlace is one entry of the /search and /reverse responses.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"` // set by /reverse when nothing is found
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = fmt.Errorf("%w: nominatim API returned empty response", ErrNoResults)
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

const nominatimUserAgent = "Thunders-Sightings/1.0 (https://github.com/UnknownOlympus/thunders)"

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client,
// base URL and limiter. A nil limiter disables rate limiting.
func NewNominatimProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *NominatimProvider {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return &NominatimProvider{
		client:    client,
		baseURL:   baseURL,
		log:       log,
		limiter:   limiter,
		userAgent: nominatimUserAgent,
	}
}

// Geocode converts an address to geographic coordinates using the first /search result.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	query := url.Values{}
	query.Set("q", address)
	query.Set("limit", "1")

	var results []nominatimPlace
	if err := np.get(ctx, "/search", query, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	return parseNominatimCoords(results[0])
}

// Suggest returns up to opts.Limit /search results. Nominatim has no radius parameter, so the
// origin bias is expressed as a viewbox around the origin; results outside it are still allowed.
func (np *NominatimProvider) Suggest(
	ctx context.Context,
	input string,
	opts SuggestOptions,
) ([]models.Suggestion, error) {
	const defaultLimit = 5

	np.log.DebugContext(ctx, "Autocomplete using Nominatim", "input", input)

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := url.Values{}
	query.Set("q", input)
	query.Set("limit", strconv.Itoa(limit))
	if opts.Origin != nil && opts.RadiusMeters > 0 {
		box := geo.NewBoundAroundPoint(opts.Origin.Point(), float64(opts.RadiusMeters))
		query.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f", box.Left(), box.Top(), box.Right(), box.Bottom()))
	}

	var results []nominatimPlace
	if err := np.get(ctx, "/search", query, &results); err != nil {
		return nil, err
	}

	suggestions := make([]models.Suggestion, 0, len(results))
	for _, place := range results {
		suggestions = append(suggestions, models.Suggestion{
			ID:          strconv.FormatInt(place.PlaceID, 10),
			Description: place.DisplayName,
		})
	}

	return suggestions, nil
}

// Reverse returns the display name of the place at the given coordinates.
func (np *NominatimProvider) Reverse(ctx context.Context, coords models.Coordinates) (string, error) {
	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "lat", coords.Latitude, "lng", coords.Longitude)

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))

	var place nominatimPlace
	if err := np.get(ctx, "/reverse", query, &place); err != nil {
		return "", err
	}

	if place.Error != "" || place.DisplayName == "" {
		return "", ErrNominatimEmptyResponse
	}

	return place.DisplayName, nil
}

// get performs a rate limited GET against the API and decodes the JSON body into out.
func (np *NominatimProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := np.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	query.Set("format", "json")
	query.Set("accept-language", "en")
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err = json.Unmarshal(body, out); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	return nil
}

func parseNominatimCoords(place nominatimPlace) (*models.Coordinates, error) {
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, place.Lon)
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
