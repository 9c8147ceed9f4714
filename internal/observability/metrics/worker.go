package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	resolveTotal    *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	resolveInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	resolveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icm",
			Subsystem: "worker",
			Name:      "resolve_total",
			Help:      "Total queue resolutions by status.",
		},
		[]string{"service", "status"},
	)
	resolveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icm",
			Subsystem: "worker",
			Name:      "resolve_duration_seconds",
			Help:      "Queue resolution duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	resolveInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "icm",
			Subsystem: "worker",
			Name:      "resolve_in_flight",
			Help:      "Number of in-flight queue resolutions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(resolveTotal, resolveDuration, resolveInFlight)

	return &WorkerMetrics{
		registry:        registry,
		resolveTotal:    resolveTotal,
		resolveDuration: resolveDuration,
		resolveInFlight: resolveInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartResolve() {
	m.resolveInFlight.Inc()
}

func (m *WorkerMetrics) FinishResolve(service string, duration time.Duration, err error) {
	m.resolveInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.resolveTotal.WithLabelValues(service, status).Inc()
	m.resolveDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
