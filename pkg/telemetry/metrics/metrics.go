// Package metrics exposes Prometheus instrumentation for chat traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks chat request processing.
//
// Exposed series:
//   - chatrelay_requests_total{provider,mode,status}
//   - chatrelay_request_duration_seconds{provider,mode}
//   - chatrelay_tokens_total{provider,type}
//   - chatrelay_stream_chunks_total{provider}
//   - chatrelay_conversations_active
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	tokensTotal         *prometheus.CounterVec
	streamChunksTotal   *prometheus.CounterVec
	conversationsActive prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatrelay",
				Name:      "requests_total",
				Help:      "Total number of chat requests processed",
			},
			[]string{"provider", "mode", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chatrelay",
				Name:      "request_duration_seconds",
				Help:      "Duration of chat requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "mode"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatrelay",
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by providers",
			},
			[]string{"provider", "type"},
		),

		streamChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chatrelay",
				Name:      "stream_chunks_total",
				Help:      "Total number of stream chunks delivered to clients",
			},
			[]string{"provider"},
		),

		conversationsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chatrelay",
				Name:      "conversations_active",
				Help:      "Number of conversations currently held in memory",
			},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.tokensTotal,
		m.streamChunksTotal,
		m.conversationsActive,
	)

	return m
}

// Registry returns the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(provider, mode, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(provider, mode, status).Inc()
	m.requestDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
}

// RecordTokens records provider-reported token usage.
func (m *Metrics) RecordTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		m.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// RecordStreamChunk counts one chunk delivered to a streaming client.
func (m *Metrics) RecordStreamChunk(provider string) {
	m.streamChunksTotal.WithLabelValues(provider).Inc()
}

// SetActiveConversations updates the live conversation gauge.
func (m *Metrics) SetActiveConversations(n int) {
	m.conversationsActive.Set(float64(n))
}
