package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rudyprotect/internal/utils"

	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket. Idle entries are swept lazily.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	r         rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*ipLimiter),
		r:         r,
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) > limiterSweepEvery {
		for key, v := range rl.limiters {
			if now.Sub(v.lastSeen) > limiterIdleAfter {
				delete(rl.limiters, key)
			}
		}
		rl.lastSweep = now
	}
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(clientIP(r)).AllowN(rl.now(), 1) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AttemptLimiter caps authentication attempts per IP inside a sliding window.
type AttemptLimiter struct {
	windows *utils.KeyedWindows
	now     func() time.Time
}

func NewAttemptLimiter(window time.Duration, attempts int) *AttemptLimiter {
	return &AttemptLimiter{windows: utils.NewKeyedWindows(window, attempts), now: time.Now}
}

func (a *AttemptLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := a.now()
		allowed, retryAfter := a.windows.Allow(clientIP(r), now)
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "too many authentication attempts")
			return
		}
		a.windows.Prune(now)
		next.ServeHTTP(w, r)
	})
}
