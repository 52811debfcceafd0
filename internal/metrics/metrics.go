// Package metrics exposes Prometheus instrumentation for engine
// operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine operations and their latency. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	brokenRefs prometheus.Counter
}

// New registers the dirsync collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dirsync",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dirsync",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency, dominated by directory round-trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		brokenRefs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dirsync",
			Name:      "broken_references_total",
			Help:      "Dangling group member references found during reconciliation.",
		}),
	}
	reg.MustRegister(m.operations, m.duration, m.brokenRefs)
	return m
}

// Observe records one engine operation.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// BrokenReference counts one dangling member reference.
func (m *Metrics) BrokenReference() {
	if m == nil {
		return
	}
	m.brokenRefs.Inc()
}
