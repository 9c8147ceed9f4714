package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	resolutionMatches  *prometheus.HistogramVec
	emptyResultsTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "icm",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icm",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total resolutions by outcome.",
		},
		[]string{"service", "endpoint", "status"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icm",
			Subsystem: "resolver",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end resolution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	resolutionMatches := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icm",
			Subsystem: "resolver",
			Name:      "resolution_matches",
			Help:      "Distribution of returned matches per successful resolution.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service", "endpoint"},
	)
	emptyResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icm",
			Subsystem: "resolver",
			Name:      "empty_results_total",
			Help:      "Total successful resolutions that produced zero matches.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		resolutionsTotal,
		resolutionDuration,
		resolutionMatches,
		emptyResultsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		resolutionMatches:  resolutionMatches,
		emptyResultsTotal:  emptyResultsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordResolution(service, endpoint string, matchCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.resolutionsTotal.WithLabelValues(service, endpoint, status).Inc()
	m.resolutionDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.resolutionMatches.WithLabelValues(service, endpoint).Observe(float64(matchCount))
	if matchCount == 0 {
		m.emptyResultsTotal.WithLabelValues(service, endpoint).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
