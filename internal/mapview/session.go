package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/thunders/internal/cache"
	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/dustin/go-humanize"
)

const (
	// DefaultSearchZoom is the zoom level applied after panning to a searched address.
	DefaultSearchZoom = 14
	// DefaultSearchRadiusMeters is the autocomplete bias radius around the map center.
	DefaultSearchRadiusMeters = 200000
	// PopupTitle is the heading of every sighting popup.
	PopupTitle = "Lighten report"
)

var (
	// ErrMapNotReady is returned by viewport operations before OnMapReady was called.
	ErrMapNotReady = errors.New("map is not ready")
	// ErrUnknownMarker is returned when a marker key does not match any sighting.
	ErrUnknownMarker = errors.New("unknown marker")
)

// MapLoadError means the map could not be initialised. It is fatal for the session.
type MapLoadError struct {
	Err error
}

func (e *MapLoadError) Error() string {
	return fmt.Sprintf("Error loading maps: %v", e.Err)
}

func (e *MapLoadError) Unwrap() error {
	return e.Err
}

// Surface is the imperative handle of a rendered map.
type Surface interface {
	PanTo(coords models.Coordinates)
	SetZoom(level int)
}

// Geocoder suggests and resolves addresses.
type Geocoder interface {
	Suggest(ctx context.Context, input string, opts geocoding.SuggestOptions) ([]models.Suggestion, error)
	Resolve(ctx context.Context, address string) (*models.Coordinates, error)
}

// OptionsLoader provides the map configuration.
type OptionsLoader interface {
	MapOptions(ctx context.Context) (models.MapOptions, error)
}

// Marker is the rendered form of a sighting.
type Marker struct {
	Key      string
	Position models.Coordinates
	Pending  bool
}

// Popup is the info window of the selected marker.
type Popup struct {
	Title string
	Body  string
	Place string
}

// Dependencies collects what a Session needs.
type Dependencies struct {
	Cache    *cache.ListCache
	Creator  *cache.Creator
	Geocoder Geocoder
	Loader   OptionsLoader
	Notices  *Notices
}

// Session is the view state of one map: the surface handle, the selected marker and the options
// the map was created with. Sightings themselves live in the ListCache.
type Session struct {
	log      *slog.Logger
	cache    *cache.ListCache
	creator  *cache.Creator
	geocoder Geocoder
	loader   OptionsLoader
	notices  *Notices
	now      func() time.Time

	mu       sync.Mutex
	surface  Surface
	options  models.MapOptions
	selected string
}

// NewSession creates a Session.
func NewSession(log *slog.Logger, deps Dependencies) *Session {
	return &Session{
		log:      log,
		cache:    deps.Cache,
		creator:  deps.Creator,
		geocoder: deps.Geocoder,
		loader:   deps.Loader,
		notices:  deps.Notices,
		now:      time.Now,
	}
}

// Load fetches the map options and the initial sighting list. Failing to get the options is a
// *MapLoadError; failing to get the list is reported as a notice and retried on the next invalidation.
func (s *Session) Load(ctx context.Context) (models.MapOptions, error) {
	opts, err := s.loader.MapOptions(ctx)
	if err != nil {
		return models.MapOptions{}, &MapLoadError{Err: err}
	}
	if opts.SearchZoom <= 0 {
		opts.SearchZoom = DefaultSearchZoom
	}
	if opts.SearchRadiusMeters <= 0 {
		opts.SearchRadiusMeters = DefaultSearchRadiusMeters
	}

	s.mu.Lock()
	s.options = opts
	s.mu.Unlock()

	if err = s.cache.Refetch(ctx); err != nil {
		s.notify(ctx, "Could not load sightings", err)
	}

	return opts, nil
}

// OnMapReady stores the handle of the rendered map.
func (s *Session) OnMapReady(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface = surface
}

// Markers projects the cached sightings onto markers keyed by sighting id.
func (s *Session) Markers() []Marker {
	sightings := s.cache.Get()
	markers := make([]Marker, 0, len(sightings))
	for _, sighting := range sightings {
		markers = append(markers, Marker{
			Key:      sighting.Key(),
			Position: sighting.Coordinates(),
			Pending:  sighting.Pending,
		})
	}

	return markers
}

// ClickMarker selects the sighting behind key, replacing any previous selection.
func (s *Session) ClickMarker(key string) error {
	if _, ok := s.lookup(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = key
	return nil
}

// ClosePopup clears the selection.
func (s *Session) ClosePopup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = ""
}

// Selected returns the selected sighting, if it is still in the list.
func (s *Session) Selected() (models.Sighting, bool) {
	s.mu.Lock()
	key := s.selected
	s.mu.Unlock()

	if key == "" {
		return models.Sighting{}, false
	}
	return s.lookup(key)
}

// Popup renders the info window of the selected sighting.
func (s *Session) Popup() (Popup, bool) {
	sighting, ok := s.Selected()
	if !ok {
		return Popup{}, false
	}

	return Popup{
		Title: PopupTitle,
		Body:  "Spotted " + humanize.RelTime(sighting.CreatedAt, s.now(), "ago", "from now"),
		Place: sighting.Place,
	}, true
}

// ClickMap clears the selection and records a sighting at coords.
func (s *Session) ClickMap(ctx context.Context, coords models.Coordinates) (*cache.Mutation, error) {
	s.ClosePopup()

	mutation, err := s.creator.Mutate(ctx, coords)
	if err != nil {
		s.log.WarnContext(ctx, "Rejected map click", "lat", coords.Latitude, "lng", coords.Longitude, "error", err)
		return nil, err
	}

	return mutation, nil
}

// Suggest returns address predictions biased around the map center.
func (s *Session) Suggest(ctx context.Context, input string) ([]models.Suggestion, error) {
	s.mu.Lock()
	opts := s.options
	s.mu.Unlock()

	center := opts.CenterCoordinates()
	suggestions, err := s.geocoder.Suggest(ctx, input, geocoding.SuggestOptions{
		Origin:       &center,
		RadiusMeters: opts.SearchRadiusMeters,
	})
	if err != nil {
		s.log.WarnContext(ctx, "Failed to get suggestions", "input", input, "error", err)
		s.notify(ctx, "Could not get suggestions", err)
		return nil, err
	}

	return suggestions, nil
}

// Search resolves address and moves the map there. On failure the view stays where it is and a
// notice is emitted.
func (s *Session) Search(ctx context.Context, address string) (models.Coordinates, error) {
	coords, err := s.geocoder.Resolve(ctx, address)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to resolve address", "address", address, "error", err)

		message := "Could not reach the geocoding service"
		var geoErr *geocoding.GeocodeError
		if errors.As(err, &geoErr) && geoErr.NotFound() {
			message = fmt.Sprintf("No place found for %q", address)
		}
		s.notify(ctx, message, err)
		return models.Coordinates{}, err
	}

	if err = s.PanTo(*coords); err != nil {
		return models.Coordinates{}, err
	}

	return *coords, nil
}

// PanTo recenters the map on coords and zooms in to the search level.
func (s *Session) PanTo(coords models.Coordinates) error {
	if err := coords.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	surface, zoom := s.surface, s.options.SearchZoom
	s.mu.Unlock()

	if surface == nil {
		return ErrMapNotReady
	}
	if zoom <= 0 {
		zoom = DefaultSearchZoom
	}

	surface.PanTo(coords)
	surface.SetZoom(zoom)

	return nil
}

func (s *Session) lookup(key string) (models.Sighting, bool) {
	for _, sighting := range s.cache.Get() {
		if sighting.Key() == key {
			return sighting, true
		}
	}
	return models.Sighting{}, false
}

func (s *Session) notify(ctx context.Context, message string, err error) {
	if s.notices != nil {
		s.notices.Notify(ctx, message, err)
	}
}
