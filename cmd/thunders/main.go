package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/thunders/internal/config"
	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/logging"
	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/repository"
	"github.com/UnknownOlympus/thunders/internal/server"
	"github.com/UnknownOlympus/thunders/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store drivers.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// main is the entry point of the sighting API.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := logging.New(cfg.Env, os.Stdout)

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open sighting store: %v", err)
	}
	defer closeStore()

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		RateLimit: cfg.RateLimit,
		BaseURL:   cfg.ProviderURL,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}

	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.ProviderType)

	mapOptions := server.MapOptionsFromConfig(cfg.Map)
	center := mapOptions.CenterCoordinates()
	router := server.NewRouter(logger, server.RouterDependencies{
		Sightings: service.NewSightingService(logger, repo, appMetrics),
		Places: service.NewPlacesService(logger, geoProvider, cfg.ProviderType, appMetrics, geocoding.SuggestOptions{
			Origin:       &center,
			RadiusMeters: cfg.Map.SearchRadius,
		}),
		MapOptions:     mapOptions,
		Metrics:        appMetrics,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	apiServer := server.New(logger, cfg.Port, router)

	labeler := service.NewLabelService(
		logger,
		repo,
		geoProvider,
		cfg.ProviderType, // Provider name for metrics
		appMetrics,
		cfg.Workers,
		cfg.Interval,
	)

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	// Start the monitoring server in a goroutine to allow main to listen for signals.
	go startMonitoringServer(ctx, logger, reg, repo, cfg.MonitoringPort)

	go labeler.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- apiServer.Start() }()

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")
	case err = <-errCh:
		if err != nil {
			logger.ErrorContext(ctx, "API server failed", "error", err)
		}
	}

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err = apiServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Failed to shut down API server", "error", err)
	}

	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// openStore connects to the configured backing store and applies its migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Interface, func(), error) {
	switch cfg.Store.Driver {
	case driverPostgres:
		pool, err := repository.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		if err = repository.MigratePostgres(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewRepository(pool, logger), pool.Close, nil
	case driverSQLite:
		store, err := repository.OpenSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close sqlite store", "error", err)
			}
		}, nil
	default:
		return nil, nil, errors.New("unsupported store driver: " + cfg.Store.Driver)
	}
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - repo: The sighting store, pinged by the health check.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	repo repository.Interface,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if err := repo.Ping(req.Context()); err != nil {
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}
