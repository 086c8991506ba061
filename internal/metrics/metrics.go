// Package metrics exposes the gateway's Prometheus instruments. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Idempotency outcomes.
const (
	OutcomeExecuted = "executed"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	idempotency       *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	events            *prometheus.CounterVec
}

// New registers the instruments on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		idempotency: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openfinance_idempotent_requests_total",
			Help: "Idempotent mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		executionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openfinance_idempotent_execution_seconds",
			Help:    "Time spent inside the idempotency lock",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openfinance_cache_lookups_total",
			Help: "Read-through cache lookups by cache and result",
		}, []string{"cache", "result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openfinance_resource_transitions_total",
			Help: "Resource versions persisted by resource type and status",
		}, []string{"resource", "status"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openfinance_events_published_total",
			Help: "Outbound events handed to the publisher",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) ObserveIdempotency(operation, outcome string) {
	if m == nil {
		return
	}
	m.idempotency.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveExecution(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.executionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObserveTransition(resource, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(resource, status).Inc()
}

func (m *Metrics) ObserveEvent(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(kind, result).Inc()
}
