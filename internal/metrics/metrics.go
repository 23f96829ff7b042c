// Package metrics exposes Prometheus instruments for the request workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the workflow instruments.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	EventsPublished  *prometheus.CounterVec
	StreamClients    prometheus.Gauge
}

// New creates the instruments and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_registry_workflow_operations_total",
			Help: "Workflow operations by action and outcome",
		}, []string{"action", "outcome"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trade_registry_workflow_operation_duration_seconds",
			Help:    "Latency of workflow operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_registry_events_published_total",
			Help: "Request events published to real-time subscribers",
		}, []string{"kind", "transport"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trade_registry_stream_clients",
			Help: "Connected server-sent event clients",
		}),
	}
}

// ObserveTransition implements workflow.Observer.
func (m *Metrics) ObserveTransition(action string, outcome string, elapsed time.Duration) {
	m.Operations.WithLabelValues(action, outcome).Inc()
	m.OperationLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) IncEventsPublished(kind, transport string) {
	m.EventsPublished.WithLabelValues(kind, transport).Inc()
}
