// Package metrics exposes Prometheus collectors for secret fetches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRetry    = "retry"
	OutcomeFailure  = "failure"
	OutcomeDegraded = "degraded"
)

// SecretMetrics records secret store activity. A nil *SecretMetrics is
// valid and records nothing.
type SecretMetrics struct {
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	providerLoads *prometheus.CounterVec
}

// New registers the collectors on reg. Passing the same registerer twice
// panics, as with any duplicate Prometheus registration.
func New(reg prometheus.Registerer) *SecretMetrics {
	factory := promauto.With(reg)

	return &SecretMetrics{
		fetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultconf_secret_fetch_attempts_total",
				Help: "Total number of secret store fetch attempts",
			},
			[]string{"backend", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultconf_secret_fetch_duration_seconds",
				Help:    "Duration of complete secret fetches including retries",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"backend"},
		),
		providerLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultconf_secret_provider_loads_total",
				Help: "Total number of secret provider loads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAttempt counts one fetch attempt.
func (m *SecretMetrics) RecordAttempt(backend, outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(backend, outcome).Inc()
}

// ObserveFetch records the wall time of a whole fetch.
func (m *SecretMetrics) ObserveFetch(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordProviderLoad counts a provider load.
func (m *SecretMetrics) RecordProviderLoad(outcome string) {
	if m == nil {
		return
	}
	m.providerLoads.WithLabelValues(outcome).Inc()
}
