package models

import (
	"time"

	"github.com/google/uuid"
)

// Sighting is a single reported observation at a point on the map.
type Sighting struct {
	ID        uuid.UUID `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	Place     string    `json:"place,omitempty"` // Place is filled in later by reverse geocoding.

	// Pending marks an optimistic entry whose create request has not settled yet.
	Pending bool `json:"-"`
}

// Coordinates returns the position of the sighting.
func (s Sighting) Coordinates() Coordinates {
	return Coordinates{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Key is the stable identity used for rendering.
func (s Sighting) Key() string {
	return s.ID.String()
}

// LabelTask is a sighting waiting for a place label.
type LabelTask struct {
	ID     uuid.UUID
	Coords Coordinates
}
