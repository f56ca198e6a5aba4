// Package metrics holds the prometheus instruments for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "relay"

// Metrics groups all Prometheus instruments used by the relay. Each Metrics
// owns its registry so several relays (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions  prometheus.Gauge
	Sessions        *prometheus.CounterVec
	Frames          *prometheus.CounterVec
	DecodeFaults    prometheus.Counter
	UpstreamErrors  *prometheus.CounterVec
	ChunksEmitted   *prometheus.CounterVec
	ChunkChars      prometheus.Histogram
	FirstChunk      prometheus.Histogram
	SessionDuration prometheus.Histogram
}

// New creates the instruments under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of relay sessions currently streaming.",
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished relay sessions by terminal state.",
		}, []string{"state"}),
		Frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_frames_total",
			Help:      "Decoded upstream frames by event type.",
		}, []string{"event"}),
		DecodeFaults: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_faults_total",
			Help:      "Reply frames dropped because their data could not be decoded.",
		}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream failures by kind.",
		}, []string{"kind"}),
		ChunksEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Outbound chunks written to clients, split by end marker.",
		}, []string{"is_end"}),
		ChunkChars: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_chars",
			Help:      "Characters per outbound chunk.",
			Buckets:   []float64{0, 10, 50, 100, 150, 200, 300, 500, 1000},
		}),
		FirstChunk: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_chunk_latency_ms",
			Help:      "Latency from request to first outbound chunk in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of relay sessions.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

// ObserveFirstChunk records the latency to the first outbound chunk.
func (m *Metrics) ObserveFirstChunk(d time.Duration) {
	m.FirstChunk.Observe(float64(d.Milliseconds()))
}

// ObserveChunk records one outbound chunk of chars characters.
func (m *Metrics) ObserveChunk(chars int, isEnd bool) {
	label := "false"
	if isEnd {
		label = "true"
	}
	m.ChunksEmitted.WithLabelValues(label).Inc()
	m.ChunkChars.Observe(float64(chars))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
