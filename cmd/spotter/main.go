package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/thunders/internal/cache"
	"github.com/UnknownOlympus/thunders/internal/client"
	"github.com/UnknownOlympus/thunders/internal/config"
	"github.com/UnknownOlympus/thunders/internal/logging"
	"github.com/UnknownOlympus/thunders/internal/mapview"
)

// main starts an interactive map session against the thunders API.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadClient()

	// stdout belongs to the map, logs go to stderr.
	logger := logging.New(cfg.Env, os.Stderr)

	api := client.New(cfg.APIURL, cfg.Timeout, logger)
	notices := mapview.NewNotices(logger, 16)
	sightings := cache.NewListCache(ctx, logger, api)
	creator := cache.NewCreator(logger, sightings, api, notices)
	session := mapview.NewSession(logger, mapview.Dependencies{
		Cache:    sightings,
		Creator:  creator,
		Geocoder: api,
		Loader:   api,
		Notices:  notices,
	})

	opts, err := session.Load(ctx)
	if err != nil {
		var loadErr *mapview.MapLoadError
		if errors.As(err, &loadErr) {
			fmt.Fprintln(os.Stderr, "Error loading maps")
		}
		logger.ErrorContext(ctx, "Failed to load map", "error", err)
		os.Exit(1)
	}

	ui := &console{log: logger, session: session, cache: sightings, out: os.Stdout}
	session.OnMapReady(ui)
	ui.printf("Thunders map centered on %.6f, %.6f at zoom %d, %d sightings\n",
		opts.Center.Lat, opts.Center.Lng, opts.Zoom, len(session.Markers()))

	go ui.watch(ctx, notices)

	if err = ui.run(ctx, os.Stdin); err != nil {
		logger.ErrorContext(ctx, "Console failed", "error", err)
	}

	// Let sightings clicked just before quitting reach the store.
	creator.Wait()
	sightings.Wait()
	stop()
}
