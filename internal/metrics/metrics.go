// Package metrics exposes the gateway's Prometheus instrumentation: one
// counter/histogram family per request outcome, token count and routing
// decision.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors. The selector records failover
// transitions against it; no request path calls RecordRequest,
// RecordLatency or RecordTokens.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	providerFailovers *prometheus.CounterVec
}

// New registers the gateway's collectors against reg and returns the
// handle used to record observations.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Chat completion requests, labeled by final provider and outcome.",
		}, []string{"provider", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "End-to-end request latency, labeled by final provider and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_tokens_total",
			Help: "Tokens accounted per provider, labeled by kind (prompt/completion).",
		}, []string{"provider", "kind"}),
		providerFailovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_failovers_total",
			Help: "Failover transitions, labeled by the provider switched away from.",
		}, []string{"from_provider"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.tokensTotal, m.providerFailovers)
	return m
}

// RecordRequest records one completed request's terminal outcome.
func (m *Metrics) RecordRequest(provider, outcome string) {
	m.requestsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordLatency records one request's end-to-end duration in seconds.
func (m *Metrics) RecordLatency(provider, outcome string, seconds float64) {
	m.requestDuration.WithLabelValues(provider, outcome).Observe(seconds)
}

// RecordTokens records prompt/completion token counts for a successful
// completion.
func (m *Metrics) RecordTokens(provider string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// RecordFailover records one failover transition away from fromProvider.
func (m *Metrics) RecordFailover(fromProvider string) {
	m.providerFailovers.WithLabelValues(fromProvider).Inc()
}
