// Package metrics defines the Prometheus metric collectors used by the
// encoder services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the encoder.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocsEncodedTotal     *prometheus.CounterVec
	EncodeLatency        prometheus.Histogram
	DocumentLength       prometheus.Histogram
	ClampedTermsTotal    prometheus.Counter
	EncodeErrorsTotal    *prometheus.CounterVec
	VectorsPublished     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them on reg. A nil reg uses the
// default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsEncodedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encoder_documents_total",
				Help: "Total documents encoded by language.",
			},
			[]string{"language"},
		),
		EncodeLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "encoder_latency_seconds",
				Help:    "Time to encode one document in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		DocumentLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "encoder_document_length_tokens",
				Help:    "Number of tokens per encoded document.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
		),
		ClampedTermsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "encoder_clamped_terms_total",
				Help: "Total vector entries whose frequency hit the cap.",
			},
		),
		EncodeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encoder_errors_total",
				Help: "Encode failures by reason.",
			},
			[]string{"reason"},
		),
		VectorsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "encoder_vectors_published_total",
				Help: "Sparse vector events published by status.",
			},
			[]string{"status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsEncodedTotal,
		m.EncodeLatency,
		m.DocumentLength,
		m.ClampedTermsTotal,
		m.EncodeErrorsTotal,
		m.VectorsPublished,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
