package models

import "encoding/json"

// LatLng is the coordinate shape used by map surfaces.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapOptions is the configuration a map surface is created with.
type MapOptions struct {
	Center             LatLng          `json:"center"`
	Zoom               int             `json:"zoom"`
	SearchZoom         int             `json:"searchZoom"`
	SearchRadiusMeters int             `json:"searchRadiusMeters"`
	Styles             json.RawMessage `json:"styles,omitempty"`
	DisableDefaultUI   bool            `json:"disableDefaultUI"`
	ZoomControl        bool            `json:"zoomControl"`
}

// CenterCoordinates returns the initial map center.
func (o MapOptions) CenterCoordinates() Coordinates {
	return Coordinates{Latitude: o.Center.Lat, Longitude: o.Center.Lng}
}
