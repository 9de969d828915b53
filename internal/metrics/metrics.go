// Package metrics provides Prometheus instrumentation for the clearing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts settlement operations, partitioned by kind.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optclear_operations_total",
		Help: "Total settlement operations executed",
	}, []string{"op"})

	// OperationRejections counts operations aborted by a precondition.
	OperationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optclear_operation_rejections_total",
		Help: "Settlement operations rejected by a precondition",
	}, []string{"op"})

	// AssignmentsTotal counts exercise fills, partitioned by unwind kind.
	AssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optclear_assignments_total",
		Help: "Total assignment fills",
	}, []string{"unwind"})

	// OpenInterest tracks the current matched exposure of the series.
	OpenInterest = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optclear_open_interest",
		Help: "Current open interest in contract units",
	})

	// RegisteredShorts tracks the size of the short registry.
	RegisteredShorts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optclear_registered_shorts",
		Help: "Number of addresses in the short registry",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optclear_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optclear_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optclear_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
