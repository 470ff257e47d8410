package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared across packages. Everything is registered
// on a dedicated registry so tests can build as many instances as they like.
// Runtime and process collectors stay on the default registry, which /metrics
// gathers alongside this one.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	WebhookEvents *prometheus.CounterVec
	TasksHandled  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outbound gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "payments",
			Subsystem: "gateway",
			Name:      "breaker_state",
			Help:      "0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "events_total",
		}, []string{"topic", "outcome"}),
		TasksHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "taskqueue",
			Name:      "tasks_total",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.GatewayRequests,
		m.GatewayDuration,
		m.BreakerState,
		m.WebhookEvents,
		m.TasksHandled,
	)
	return m
}
