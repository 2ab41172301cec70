package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the prometheus instruments the intake engine exports.
type Metrics struct {
	registry *prometheus.Registry

	simulationsTotal prometheus.Counter
	submissionsTotal *prometheus.CounterVec
	busEventsTotal   *prometheus.CounterVec
	breakerState     prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		simulationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_simulations_total",
			Help: "Number of credit simulations computed.",
		}),
		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Number of consulting requests created, by service category.",
		}, []string{"category"}),
		busEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_bus_events_total",
			Help: "Notification bus events emitted, by event type.",
		}, []string{"event"}),
		breakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intake_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSimulation() {
	if m == nil {
		return
	}
	m.simulationsTotal.Inc()
}

func (m *Metrics) ObserveSubmission(category string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(category).Inc()
}

func (m *Metrics) ObserveBusEvent(event string) {
	if m == nil {
		return
	}
	m.busEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.breakerState.Set(state)
}
