package prometheus

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
)

// Metrics bundles prometheus collectors used by the streamer API.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDurationSec  *prometheus.HistogramVec
	PreviewCacheTotal   *prometheus.CounterVec
	PreviewRenderSec    prometheus.Histogram
	SnapshotUnavailable prometheus.Counter
	RateLimitDropped    prometheus.Counter
	AuthFailures        prometheus.Counter
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_api_requests_total",
			Help: "Total number of streamer API HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamer_api_request_duration_seconds",
			Help:    "Streamer API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		PreviewCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_api_preview_cache_total",
			Help: "Preview requests by cache outcome.",
		}, []string{"result"}),
		PreviewRenderSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamer_api_preview_render_seconds",
			Help:    "Time spent building a preview that missed the cache.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SnapshotUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_api_snapshot_unavailable_total",
			Help: "Total number of snapshot requests answered with 503.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_api_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamer_api_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.PreviewCacheTotal,
		m.PreviewRenderSec,
		m.SnapshotUnavailable,
		m.RateLimitDropped,
		m.AuthFailures,
	)

	return m
}

// ObservePreview implements port.DispatchMetrics.
func (m *Metrics) ObservePreview(result port.PreviewResult, duration time.Duration) {
	m.PreviewCacheTotal.WithLabelValues(string(result)).Inc()
	if result == port.PreviewMiss {
		m.PreviewRenderSec.Observe(duration.Seconds())
	}
}

// IncSnapshotUnavailable implements port.DispatchMetrics.
func (m *Metrics) IncSnapshotUnavailable() {
	m.SnapshotUnavailable.Inc()
}

func (m *Metrics) IncRateLimitDropped() {
	m.RateLimitDropped.Inc()
}

func (m *Metrics) IncAuthFailures() {
	m.AuthFailures.Inc()
}

// Middleware records request count and latency labelled by the matched ServeMux pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := r.Pattern
		if route == "" {
			route = "other"
		}
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
