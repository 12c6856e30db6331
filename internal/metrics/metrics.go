package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SightingsCreated *prometheus.CounterVec
	PlacesLabelled   *prometheus.CounterVec
	APIErrors        prometheus.Counter
	RequestSeconds   *prometheus.HistogramVec
	ActiveWorkers    prometheus.Gauge
	HTTPSeconds      *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SightingsCreated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "thunders_sightings_created_total",
			Help: "Total number of create sighting requests by outcome.",
		}, []string{"status"}),
		PlacesLabelled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "thunders_places_labelled_total",
			Help: "Total number of sightings processed by the place labelling workers.",
		}, []string{"status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "thunders_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thunders_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "thunders_label_active_workers",
			Help: "Current number of active workers labelling sightings.",
		}),
		HTTPSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thunders_http_request_duration_seconds",
			Help:    "Duration of public API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
