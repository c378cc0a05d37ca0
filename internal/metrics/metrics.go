// Package metrics exposes Prometheus collectors for the agent.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "a2a_agent"

// Metrics holds the agent's collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	streamEvents    *prometheus.CounterVec
	chunkBytes      prometheus.Histogram
	backendDuration *prometheus.HistogramVec
	inflight        prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC calls by method and result code (0 for success).",
		}, []string{"method", "code"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Envelopes pushed on message/stream by entity kind.",
		}, []string{"kind"}),
		chunkBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_bytes",
			Help:      "Size of aggregated answer chunks.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
		}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Language-model call duration by mode and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode", "outcome"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_inflight",
			Help:      "Streaming calls currently open.",
		}),
	}
	reg.MustRegister(
		m.requests,
		m.streamEvents,
		m.chunkBytes,
		m.backendDuration,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Request counts one dispatched call. code is 0 on success.
func (m *Metrics) Request(method string, code int) {
	if m == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// StreamEvent counts one pushed envelope.
func (m *Metrics) StreamEvent(kind string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(kind).Inc()
}

// Chunk records the size of an emitted chunk.
func (m *Metrics) Chunk(size int) {
	if m == nil {
		return
	}
	m.chunkBytes.Observe(float64(size))
}

// Backend records the duration of a model call.
func (m *Metrics) Backend(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(mode, outcome).Observe(d.Seconds())
}

// StreamOpened increments the open-streams gauge; the returned func
// decrements it.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
