package client

import (
	"errors"
	"fmt"
)

// ErrMalformedSighting marks a list entry that could not be turned into a sighting.
var ErrMalformedSighting = errors.New("malformed sighting")

// NetworkError is returned when the sighting store cannot be reached or answers with a non-2xx status.
type NetworkError struct {
	Op         string // Op is the request that failed, e.g. "list sightings".
	StatusCode int    // StatusCode is zero for transport failures.
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to %s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
