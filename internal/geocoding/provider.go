package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/thunders/internal/models"
)

// ErrNoResults is wrapped by every provider error that means "the service answered, but found nothing".
var ErrNoResults = errors.New("no geocoding results")

// Provider is implemented by every geocoding backend.
//
// Geocode resolves an address to coordinates, Suggest returns ranked autocomplete predictions
// for a partial address, and Reverse returns a human-readable label for a coordinate.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
	Suggest(ctx context.Context, input string, opts SuggestOptions) ([]models.Suggestion, error)
	Reverse(ctx context.Context, coords models.Coordinates) (string, error)
}

// SuggestOptions biases autocomplete predictions toward an origin.
type SuggestOptions struct {
	Origin       *models.Coordinates // Origin biases results; nil disables biasing.
	RadiusMeters int                 // RadiusMeters is the bias radius around Origin.
	Limit        int                 // Limit caps the number of predictions; zero means provider default.
}

// GeocodeError is returned when an address cannot be resolved, either because there is no match
// or because the provider could not be reached.
type GeocodeError struct {
	Query string
	Err   error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("failed to geocode %q: %v", e.Query, e.Err)
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the error means the address had no match.
func (e *GeocodeError) NotFound() bool {
	return errors.Is(e.Err, ErrNoResults)
}
