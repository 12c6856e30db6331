package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the thunders API.
type Client struct {
	http    HTTPClient
	baseURL string
	log     *slog.Logger
}

// New creates a Client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return NewWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, log)
}

// NewWithHTTPClient creates a Client with a custom HTTP client.
func NewWithHTTPClient(client HTTPClient, baseURL string, log *slog.Logger) *Client {
	return &Client{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// ListSightings fetches the authoritative sighting list. Malformed entries are dropped.
func (c *Client) ListSightings(ctx context.Context) ([]models.Sighting, error) {
	const op = "list sightings"

	var payload struct {
		Sightings []json.RawMessage `json:"sightings"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/api/sightings", nil, nil, &payload); err != nil {
		return nil, err
	}

	sightings := make([]models.Sighting, 0, len(payload.Sightings))
	for i, raw := range payload.Sightings {
		sighting, err := parseSighting(raw)
		if err != nil {
			c.log.WarnContext(ctx, "Dropping malformed sighting", "index", i, "error", err)
			continue
		}
		sightings = append(sightings, sighting)
	}

	return sightings, nil
}

// CreateSighting sends a new sighting to the store and returns the stored record.
func (c *Client) CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error) {
	const op = "create sighting"

	body := map[string]any{
		"sighting": map[string]any{
			"id":        sighting.ID.String(),
			"latitude":  sighting.Latitude,
			"longitude": sighting.Longitude,
		},
	}

	var payload struct {
		Sighting json.RawMessage `json:"sighting"`
	}
	if err := c.do(ctx, op, http.MethodPost, "/api/sightings/create", nil, body, &payload); err != nil {
		return models.Sighting{}, err
	}

	stored, err := parseSighting(payload.Sighting)
	if err != nil {
		c.log.WarnContext(ctx, "Store accepted sighting but returned an unreadable record", "error", err)
		sighting.Pending = false
		return sighting, nil
	}

	return stored, nil
}

// Suggest returns autocomplete predictions from the server side geocoding proxy.
func (c *Client) Suggest(
	ctx context.Context,
	input string,
	opts geocoding.SuggestOptions,
) ([]models.Suggestion, error) {
	query := url.Values{}
	query.Set("input", input)
	if opts.Origin != nil {
		query.Set("lat", strconv.FormatFloat(opts.Origin.Latitude, 'f', -1, 64))
		query.Set("lng", strconv.FormatFloat(opts.Origin.Longitude, 'f', -1, 64))
	}
	if opts.RadiusMeters > 0 {
		query.Set("radius", strconv.Itoa(opts.RadiusMeters))
	}

	var payload struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := c.do(ctx, "suggest places", http.MethodGet, "/api/places/suggest", query, nil, &payload); err != nil {
		return nil, &geocoding.GeocodeError{Query: input, Err: err}
	}

	if opts.Limit > 0 && len(payload.Suggestions) > opts.Limit {
		payload.Suggestions = payload.Suggestions[:opts.Limit]
	}

	return payload.Suggestions, nil
}

// Resolve turns an address into a coordinate. Every failure is a *geocoding.GeocodeError; a 404
// from the server wraps geocoding.ErrNoResults.
func (c *Client) Resolve(ctx context.Context, address string) (*models.Coordinates, error) {
	query := url.Values{}
	query.Set("address", address)

	var coords models.Coordinates
	err := c.do(ctx, "resolve address", http.MethodGet, "/api/places/resolve", query, nil, &coords)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode == http.StatusNotFound {
			return nil, &geocoding.GeocodeError{Query: address, Err: geocoding.ErrNoResults}
		}
		return nil, &geocoding.GeocodeError{Query: address, Err: err}
	}

	if err = coords.Validate(); err != nil {
		return nil, &geocoding.GeocodeError{Query: address, Err: err}
	}

	return &coords, nil
}

// MapOptions fetches the map configuration.
func (c *Client) MapOptions(ctx context.Context) (models.MapOptions, error) {
	var opts models.MapOptions
	if err := c.do(ctx, "load map options", http.MethodGet, "/api/map/config", nil, nil, &opts); err != nil {
		return models.MapOptions{}, err
	}

	return opts, nil
}

// do performs a JSON request. Transport failures and non-2xx answers become *NetworkError.
func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	in, out any,
) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.DebugContext(ctx, "API request", "method", method, "url", reqURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(apiError(data))}
	}

	if err = json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// apiError extracts the message of an {"error": "..."} body.
func apiError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
