// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine. Each Metrics owns its
// registry so several engines (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	IssuancesCreated  prometheus.Counter
	IssuancesLoaded   prometheus.Gauge

	// Presale metrics
	Contributions      prometheus.Counter
	FinalizationsTotal *prometheus.CounterVec

	// Payout metrics
	ClaimsTotal      *prometheus.CounterVec
	PayoutFailures   *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	EventSubscribers prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered on a
// fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokenhub"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and result",
		}, []string{"op", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency in seconds, including persistence",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		IssuancesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuances_created_total",
			Help:      "Total number of issuances created",
		}),
		IssuancesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "issuances_loaded",
			Help:      "Issuances currently held in the engine registry",
		}),

		Contributions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "contributions_total",
			Help:      "Total number of accepted contributions",
		}),
		FinalizationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "finalizations_total",
			Help:      "Presale finalizations by outcome",
		}, []string{"outcome"}),

		ClaimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Successful pull-payment claims by kind",
		}, []string{"kind"}),
		PayoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_failures_total",
			Help:      "Native payouts that failed and were re-credited, by kind",
		}, []string{"kind"}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "version_conflicts_total",
			Help:      "Optimistic version conflicts reported by the store",
		}),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Connected websocket event subscribers",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordOperation records one engine call.
func (m *Metrics) RecordOperation(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// RecordClaim records a committed claim of the given kind.
func (m *Metrics) RecordClaim(kind string) {
	if m == nil {
		return
	}
	m.ClaimsTotal.WithLabelValues(kind).Inc()
}

// RecordPayoutFailure records a failed native payout.
func (m *Metrics) RecordPayoutFailure(kind string) {
	if m == nil {
		return
	}
	m.PayoutFailures.WithLabelValues(kind).Inc()
}

// RecordFinalization records the branch a finalize took.
func (m *Metrics) RecordFinalization(outcome string) {
	if m == nil {
		return
	}
	m.FinalizationsTotal.WithLabelValues(outcome).Inc()
}
