package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus collectors, kept in their own
// registry so handlers can be built more than once in a process.
type Metrics struct {
	reg *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	extractions     *prometheus.CounterVec
	extractDuration *prometheus.HistogramVec
	extracted       prometheus.Counter
	inFlight        prometheus.Gauge
	playback        *prometheus.CounterVec
}

// NewMetrics registers the server collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "langextract_http_requests_total",
			Help: "HTTP requests by status code and method.",
		}, []string{"code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "langextract_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "method"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "langextract_extractions_total",
			Help: "Extraction requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		extractDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "langextract_extract_duration_seconds",
			Help:    "Time spent in the provider per extraction request.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider"}),
		extracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "langextract_extracted_entities_total",
			Help: "Extractions returned to clients.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "langextract_extract_in_flight",
			Help: "Extraction requests currently holding a concurrency slot.",
		}),
		playback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "langextract_playback_commands_total",
			Help: "Playback commands by action and result.",
		}, []string{"action", "result"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration,
		m.extractions, m.extractDuration, m.extracted, m.inFlight,
		m.playback,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Instrument counts and times every request through next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests,
		promhttp.InstrumentHandlerDuration(m.requestDuration, next))
}

func (m *Metrics) observeExtract(provider, outcome string, took time.Duration, n int) {
	m.extractions.WithLabelValues(provider, outcome).Inc()
	m.extractDuration.WithLabelValues(provider).Observe(took.Seconds())
	m.extracted.Add(float64(n))
}

func (m *Metrics) observePlayback(action string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.playback.WithLabelValues(action, result).Inc()
}
