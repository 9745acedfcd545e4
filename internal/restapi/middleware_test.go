package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vonatradar.hu/internal/clock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddlewareSetsHeaders(t *testing.T) {
	handler := CORSMiddleware(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trains", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSMiddlewareHandlesPreflight(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the next handler")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/trains", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trains", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddlewarePreservesValidID(t *testing.T) {
	handler := RequestIDMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/trains", nil)
	req.Header.Set("X-Request-ID", "client-id-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "client-id-42", w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddlewareRejectsMalformedID(t *testing.T) {
	handler := RequestIDMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/trains", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces!")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "bad id with spaces!", got)
}

func TestRateLimitMiddlewareBlocksAfterBurst(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimitMiddleware(2, clock.NewMockClock(now))
	defer rl.Stop()

	handler := rl.Handler()(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/trains", nil)
		req.RemoteAddr = "203.0.113.5:51234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddlewareIsPerClient(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimitMiddleware(1, clock.NewMockClock(now))
	defer rl.Stop()

	handler := rl.Handler()(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/trains", nil)
	first.RemoteAddr = "203.0.113.5:51234"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)
	require.Equal(t, http.StatusOK, w1.Code)

	// Same client is now exhausted.
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, first)
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// A different client has its own budget.
	other := httptest.NewRequest(http.MethodGet, "/trains", nil)
	other.RemoteAddr = "198.51.100.7:40000"
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, other)
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitCleanupEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clk := clock.NewMockClock(now)
	rl := NewRateLimitMiddleware(10, clk)
	defer rl.Stop()

	handler := rl.Handler()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/trains", nil)
	req.RemoteAddr = "203.0.113.5:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rl.mu.RLock()
	require.Len(t, rl.limiters, 1)
	rl.mu.RUnlock()

	clk.Set(now.Add(11 * time.Minute))
	rl.cleanupOnce()

	rl.mu.RLock()
	assert.Empty(t, rl.limiters)
	rl.mu.RUnlock()
}

func TestClientAddressPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/trains", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "203.0.113.5", clientAddress(req))
}
