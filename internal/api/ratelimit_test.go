package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 2)
	h := rl.Limit(http.HandlerFunc(okHandler))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestRateLimiter_SweepsIdleEntries(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.now = func() time.Time { return now }
	rl.get("a")

	now = now.Add(limiterIdleAfter + limiterSweepEvery + time.Second)
	rl.get("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "a")
	assert.Contains(t, rl.limiters, "b")
}

func TestAttemptLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := NewAttemptLimiter(time.Hour, 2)
	a.now = func() time.Time { return now }
	h := a.Limit(http.HandlerFunc(okHandler))

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, call().Code)
	now = now.Add(10 * time.Minute)
	assert.Equal(t, http.StatusOK, call().Code)

	rr := call()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "3000", rr.Header().Get("Retry-After"))

	now = now.Add(51 * time.Minute)
	assert.Equal(t, http.StatusOK, call().Code)
}
