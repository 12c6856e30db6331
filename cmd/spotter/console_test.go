package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/thunders/internal/cache"
	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/mapview"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/test/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedLoader struct{}

func (fixedLoader) MapOptions(context.Context) (models.MapOptions, error) {
	return models.MapOptions{Center: models.LatLng{Lat: 46.201339, Lng: 6.147120}, Zoom: 8, SearchZoom: 14}, nil
}

type fixedGeocoder struct{}

func (fixedGeocoder) Suggest(context.Context, string, geocoding.SuggestOptions) ([]models.Suggestion, error) {
	return []models.Suggestion{{ID: "p1", Description: "Geneva, Switzerland"}}, nil
}

func (fixedGeocoder) Resolve(context.Context, string) (*models.Coordinates, error) {
	return &models.Coordinates{Latitude: 46.2043907, Longitude: 6.1431577}, nil
}

func newConsole(t *testing.T, initial []models.Sighting) (*console, *bytes.Buffer, *mocks.Interface) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := mocks.NewInterface(t)
	store.On("ListSightings", mock.Anything).Return(initial, nil).Once()

	lc := cache.NewListCache(t.Context(), logger, store)
	notices := mapview.NewNotices(logger, 4)
	session := mapview.NewSession(logger, mapview.Dependencies{
		Cache:    lc,
		Creator:  cache.NewCreator(logger, lc, store, notices),
		Geocoder: fixedGeocoder{},
		Loader:   fixedLoader{},
		Notices:  notices,
	})
	_, err := session.Load(t.Context())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	ui := &console{log: logger, session: session, cache: lc, out: out}
	session.OnMapReady(ui)

	return ui, out, store
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    models.Coordinates
		wantErr error
	}{
		{name: "space separated", input: "46.20 6.15", want: models.Coordinates{Latitude: 46.20, Longitude: 6.15}},
		{name: "comma separated", input: "46.20, 6.15", want: models.Coordinates{Latitude: 46.20, Longitude: 6.15}},
		{name: "missing longitude", input: "46.20", wantErr: errUsage},
		{name: "not a number", input: "north 6.15", wantErr: models.ErrInvalidCoordinates},
		{name: "out of range", input: "91 6.15", wantErr: models.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCoordinates(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsole_SelectAndSearch(t *testing.T) {
	spotted := models.Sighting{
		ID: uuid.New(), Latitude: 46.2, Longitude: 6.15, CreatedAt: time.Now().Add(-2 * time.Minute), Place: "Genève",
	}
	ui, out, _ := newConsole(t, []models.Sighting{spotted})

	input := strings.Join([]string{
		"markers",
		"select " + spotted.Key(),
		"suggest Genev",
		"pick 1",
		"pick 9",
		"locate 46.5 6.6",
		"dance",
		"quit",
		"markers",
	}, "\n")
	require.NoError(t, ui.run(t.Context(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, spotted.Key()+"  46.200000, 6.150000")
	assert.Contains(t, text, "[Lighten report] Spotted 2 minutes ago")
	assert.Contains(t, text, "  Genève")
	assert.Contains(t, text, "  1. Geneva, Switzerland")
	assert.Contains(t, text, "map: centered on 46.204391, 6.143158\nmap: zoom 14")
	assert.Contains(t, text, "error: usage: pick <1..1>")
	assert.Contains(t, text, "map: centered on 46.500000, 6.600000")
	assert.Contains(t, text, `error: unknown command "dance", try help`)
}

func TestConsole_Click(t *testing.T) {
	ui, out, store := newConsole(t, nil)
	done := make(chan struct{})
	store.On("CreateSighting", mock.Anything, mock.Anything).
		Return(func(_ context.Context, s models.Sighting) models.Sighting { return s }, nil).Once()
	store.On("ListSightings", mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return([]models.Sighting{}, nil).Once()

	require.NoError(t, ui.execute(t.Context(), "click 46.20 6.15"))
	<-done
	ui.cache.Wait()

	assert.Contains(t, out.String(), "(pending)")
	require.ErrorIs(t, ui.execute(t.Context(), "click 200 6.15"), models.ErrInvalidCoordinates)
}
