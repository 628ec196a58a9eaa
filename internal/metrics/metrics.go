// Package metrics defines the Prometheus collectors exported by vitrine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe outcome label values
const (
	ProbeOutcomeSuccess  = "success"
	ProbeOutcomeFallback = "fallback"
	ProbeOutcomeCached   = "cached"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitrine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Playback metrics
var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitrine_probes_total",
			Help: "Total number of duration lookups for auto items, by outcome",
		},
		[]string{"outcome"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitrine_probe_duration_seconds",
			Help:    "Time spent probing a single media source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	StaleGenerationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitrine_stale_generations_total",
			Help: "Resolution results discarded because a newer playlist superseded them",
		},
	)

	SettlementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitrine_settlements_total",
			Help: "Playlist generations whose durations settled and were committed",
		},
	)
)

// Registry and streaming gauges
var (
	ActiveSchedulers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitrine_active_schedulers",
			Help: "Number of sections with a loaded playback scheduler",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vitrine_stream_clients",
			Help: "Number of connected state stream websocket clients",
		},
	)
)
