package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
)

func TestMetrics_ObservePreview(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePreview(port.PreviewMiss, 10*time.Millisecond)
	m.ObservePreview(port.PreviewHit, 0)
	m.ObservePreview(port.PreviewHit, 0)
	m.IncSnapshotUnavailable()

	if got := testutil.ToFloat64(m.PreviewCacheTotal.WithLabelValues("hit")); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.PreviewCacheTotal.WithLabelValues("miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotUnavailable); got != 1 {
		t.Fatalf("expected 1 unavailable, got %v", got)
	}
}

func TestMetrics_MiddlewareUsesPattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /streamer/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	handler := m.Middleware(mux)

	req := httptest.NewRequest(http.MethodGet, "/streamer/snapshot?preview=1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET /streamer/snapshot", http.MethodGet, "503"))
	if got != 1 {
		t.Fatalf("expected 1 request for pattern, got %v", got)
	}
}
