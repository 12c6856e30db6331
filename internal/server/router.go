package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/metrics"
	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/UnknownOlympus/thunders/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SightingService is the sighting store as seen by the handlers.
type SightingService interface {
	List(ctx context.Context) ([]models.Sighting, error)
	Create(ctx context.Context, input service.CreateSightingInput) (models.Sighting, error)
}

// PlacesService is the geocoding proxy as seen by the handlers.
type PlacesService interface {
	Suggest(ctx context.Context, input string, opts geocoding.SuggestOptions) ([]models.Suggestion, error)
	Resolve(ctx context.Context, address string) (*models.Coordinates, error)
}

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Sightings      SightingService
	Places         PlacesService
	MapOptions     models.MapOptions
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter wires the public API routes.
func NewRouter(log *slog.Logger, deps RouterDependencies) http.Handler {
	h := &handlers{
		log:        log,
		sightings:  deps.Sightings,
		places:     deps.Places,
		mapOptions: deps.MapOptions,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log, deps.Metrics))
	r.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/sightings", h.listSightings)
		r.Post("/sightings/create", h.createSighting)
		r.Get("/places/suggest", h.suggestPlaces)
		r.Get("/places/resolve", h.resolvePlace)
		r.Get("/map/config", h.mapConfig)
	})

	return r
}

// requestLogger logs every request and records its latency per route pattern.
func requestLogger(log *slog.Logger, appMetrics *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			if appMetrics != nil {
				appMetrics.HTTPSeconds.
					WithLabelValues(route, r.Method, strconv.Itoa(status)).
					Observe(time.Since(start).Seconds())
			}

			log.InfoContext(r.Context(), "Request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", route,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
