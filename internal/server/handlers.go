package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/UnknownOlympus/thunders/internal/config"
	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/internal/service"
	"github.com/google/uuid"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

//go:embed styles/map.json
var defaultStyles []byte

type handlers struct {
	log        *slog.Logger
	sightings  SightingService
	places     PlacesService
	mapOptions models.MapOptions
}

type sightingPayload struct {
	ID        string    `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	Place     string    `json:"place,omitempty"`
}

type sightingsResponse struct {
	Sightings []sightingPayload `json:"sightings"`
}

type sightingResponse struct {
	Sighting sightingPayload `json:"sighting"`
}

type createSightingRequest struct {
	Sighting *struct {
		ID        string   `json:"id"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"sighting"`
}

type suggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// MapOptionsFromConfig builds the map configuration handed to clients.
func MapOptionsFromConfig(cfg config.MapConfig) models.MapOptions {
	return models.MapOptions{
		Center:             models.LatLng{Lat: cfg.CenterLat, Lng: cfg.CenterLng},
		Zoom:               cfg.Zoom,
		SearchZoom:         cfg.SearchZoom,
		SearchRadiusMeters: cfg.SearchRadius,
		Styles:             json.RawMessage(defaultStyles),
		DisableDefaultUI:   true,
		ZoomControl:        true,
	}
}

func toPayload(s models.Sighting) sightingPayload {
	return sightingPayload{
		ID:        s.ID.String(),
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		CreatedAt: s.CreatedAt.UTC(),
		Place:     s.Place,
	}
}

func (h *handlers) listSightings(w http.ResponseWriter, r *http.Request) {
	sightings, err := h.sightings.List(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "Failed to list sightings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sightings")
		return
	}

	resp := sightingsResponse{Sightings: make([]sightingPayload, 0, len(sightings))}
	for _, s := range sightings {
		resp.Sightings = append(resp.Sightings, toPayload(s))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) createSighting(w http.ResponseWriter, r *http.Request) {
	var payload createSightingRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Sighting == nil || payload.Sighting.Latitude == nil || payload.Sighting.Longitude == nil {
		writeError(w, http.StatusBadRequest, "sighting latitude and longitude are required")
		return
	}

	input := service.CreateSightingInput{
		Coords: models.Coordinates{Latitude: *payload.Sighting.Latitude, Longitude: *payload.Sighting.Longitude},
	}
	if payload.Sighting.ID != "" {
		id, err := uuid.Parse(payload.Sighting.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid sighting id")
			return
		}
		input.ID = id
	}

	stored, err := h.sightings.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCoordinates) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.ErrorContext(r.Context(), "Failed to create sighting", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist sighting")
		return
	}

	respondJSON(w, http.StatusCreated, sightingResponse{Sighting: toPayload(stored)})
}

func (h *handlers) suggestPlaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts geocoding.SuggestOptions
	if query.Get("lat") != "" || query.Get("lng") != "" {
		lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(query.Get("lng"), 64)
		origin := models.Coordinates{Latitude: lat, Longitude: lng}
		if errLat != nil || errLng != nil || origin.Validate() != nil {
			writeError(w, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		opts.Origin = &origin
	}
	if v := query.Get("radius"); v != "" {
		radius, err := strconv.Atoi(v)
		if err != nil || radius < 0 {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		opts.RadiusMeters = radius
	}

	suggestions, err := h.places.Suggest(r.Context(), query.Get("input"), opts)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "input is required")
			return
		}
		h.log.WarnContext(r.Context(), "Failed to suggest places", "error", err)
		writeError(w, http.StatusBadGateway, "geocoding service unavailable")
		return
	}

	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}
	respondJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

func (h *handlers) resolvePlace(w http.ResponseWriter, r *http.Request) {
	coords, err := h.places.Resolve(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		var geoErr *geocoding.GeocodeError
		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, "address is required")
		case errors.As(err, &geoErr) && geoErr.NotFound():
			writeError(w, http.StatusNotFound, "no results for address")
		default:
			writeError(w, http.StatusBadGateway, "geocoding service unavailable")
		}
		return
	}

	respondJSON(w, http.StatusOK, coords)
}

func (h *handlers) mapConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.mapOptions)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
