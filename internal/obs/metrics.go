// Package obs holds Prometheus metrics and the HTTP instrumentation wrapper.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CheckRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liveness_check_runs_total",
		Help: "Completed liveness sweep runs.",
	})

	Expiries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liveness_expiries_total",
		Help: "Principals flipped from alive to expired.",
	})

	Reminders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "liveness_reminders_total",
		Help: "Reminder notices sent to owners nearing expiry.",
	})

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_deliveries_total",
			Help: "Trustee notification attempts by result.",
		},
		[]string{"kind", "result"},
	)

	Lockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lockouts_total",
		Help: "Principals locked after repeated failed credential checks.",
	})

	Unlocks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unlocks_total",
		Help: "Principals unlocked through trustee recovery.",
	})
)

// Init registers everything in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		CheckRuns, Expiries, Reminders, Deliveries, Lockouts, Unlocks,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with RPS, latency and in-flight accounting.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
