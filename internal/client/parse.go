package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
)

// number accepts a JSON number or a string holding one. Anything else leaves it unset, which
// parseSighting reports.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(strings.Trim(string(data), `"`), 64)
	if err == nil {
		n.value, n.set = v, true
	}
	return nil
}

type sightingDTO struct {
	ID        string `json:"id"`
	Latitude  number `json:"latitude"`
	Longitude number `json:"longitude"`
	CreatedAt string `json:"createdAt"`
	Place     string `json:"place"`
}

// parseSighting validates one raw list entry.
func parseSighting(raw json.RawMessage) (models.Sighting, error) {
	var dto sightingDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return models.Sighting{}, fmt.Errorf("%w: %v", ErrMalformedSighting, err)
	}

	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return models.Sighting{}, fmt.Errorf("%w: id %q", ErrMalformedSighting, dto.ID)
	}
	if !dto.Latitude.set || !dto.Longitude.set {
		return models.Sighting{}, fmt.Errorf("%w: missing coordinates", ErrMalformedSighting)
	}

	coords := models.Coordinates{Latitude: dto.Latitude.value, Longitude: dto.Longitude.value}
	if err = coords.Validate(); err != nil {
		return models.Sighting{}, fmt.Errorf("%w: %v", ErrMalformedSighting, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	if err != nil {
		return models.Sighting{}, fmt.Errorf("%w: createdAt %q", ErrMalformedSighting, dto.CreatedAt)
	}

	return models.Sighting{
		ID:        id,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		CreatedAt: createdAt,
		Place:     dto.Place,
	}, nil
}
