package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeErrorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Error string `json:"error"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	if body.OK {
		t.Fatalf("expected ok=false")
	}
	return body.Result.Error
}

func TestAuth(t *testing.T) {
	failures := 0
	cfg := AuthConfig{Enabled: true, BearerToken: "secret", OnFailure: func() { failures++ }}
	handler := Auth(cfg, logger.New("error"))(okHandler())

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{name: "bearer header", target: "/streamer", header: "Bearer secret", wantStatus: http.StatusOK},
		{name: "query token", target: "/ws?token=secret", wantStatus: http.StatusOK},
		{name: "wrong token", target: "/streamer", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing token", target: "/streamer", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus == http.StatusUnauthorized && decodeErrorKind(t, rec) != "UnauthorizedError" {
				t.Fatalf("unexpected error body: %s", rec.Body.String())
			}
		})
	}

	if failures != 2 {
		t.Fatalf("expected 2 auth failures, got %d", failures)
	}
}

func TestAuth_Disabled(t *testing.T) {
	handler := Auth(AuthConfig{}, logger.New("error"))(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streamer", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	dropped := 0
	handler := RateLimit(limiter, func() { dropped++ })(okHandler())

	codes := make([]int, 0, 4)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/streamer/snapshot", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && decodeErrorKind(t, rec) != "RateLimitError" {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/streamer/snapshot", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	codes = append(codes, rec.Code)

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped request, got %d", dropped)
	}
}

func TestRateLimit_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 1)
	handler := RateLimit(limiter, nil)(okHandler())

	allowed := 0
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/streamer/snapshot", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i%250))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i%250))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	if allowed != 1 {
		t.Fatalf("expected 1 allowed request, got %d", allowed)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected 1 tracked client, got %d", limiter.Len())
	}
}

func TestIPRateLimiter_ClientIP(t *testing.T) {
	limiter := NewIPRateLimiter(10, 10)
	if err := limiter.TrustProxies([]string{"10.0.0.0/8", "192.168.1.1"}); err != nil {
		t.Fatalf("TrustProxies() error = %v", err)
	}

	tests := []struct {
		name      string
		remote    string
		forwarded string
		realIP    string
		want      string
	}{
		{name: "untrusted peer", remote: "203.0.113.9:4000", forwarded: "198.51.100.1", want: "203.0.113.9"},
		{name: "trusted proxy", remote: "10.1.2.3:4000", forwarded: "198.51.100.1", want: "198.51.100.1"},
		{name: "spoofed leftmost hop", remote: "10.1.2.3:4000", forwarded: "1.1.1.1, 198.51.100.1, 10.0.0.7", want: "198.51.100.1"},
		{name: "single trusted address", remote: "192.168.1.1:4000", realIP: "198.51.100.2", want: "198.51.100.2"},
		{name: "garbage hop", remote: "10.1.2.3:4000", forwarded: "not-an-ip", want: "10.1.2.3"},
		{name: "no headers", remote: "10.1.2.3:4000", want: "10.1.2.3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/streamer/snapshot", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			if got := limiter.clientIP(req); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestIPRateLimiter_TrustProxiesInvalid(t *testing.T) {
	limiter := NewIPRateLimiter(10, 10)
	if err := limiter.TrustProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatalf("expected error for invalid prefix")
	}
	if err := limiter.TrustProxies([]string{"proxy.local"}); err == nil {
		t.Fatalf("expected error for hostname")
	}
}

func TestIPRateLimiter_MaxEntries(t *testing.T) {
	limiter := NewIPRateLimiter(10, 10)
	limiter.maxEntries = 4

	for i := 0; i < 50; i++ {
		limiter.Allow(fmt.Sprintf("198.51.100.%d", i))
		if limiter.Len() > 4 {
			t.Fatalf("tracked %d clients, limit is 4", limiter.Len())
		}
	}
}

func TestIPRateLimiter_EvictIdle(t *testing.T) {
	limiter := NewIPRateLimiter(10, 10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.Allow("10.0.0.2")
	limiter.evictIdle()

	if limiter.Len() != 1 {
		t.Fatalf("expected idle limiter to be evicted, got %d entries", limiter.Len())
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streamer", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/streamer", nil)
	req.Header.Set(RequestIDHeader, "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Fatalf("expected client request id, got %q", seen)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.New("error"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streamer", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if decodeErrorKind(t, rec) != "<internal>" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}
