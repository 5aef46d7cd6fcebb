package middleware

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrThrottled = errors.New("too many requests, try again shortly")

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per endpoint path.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	r       rate.Limit
	burst   int
	swept   time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		r:       rate.Limit(rps),
		burst:   burst,
		swept:   time.Now(),
	}
}

func (rl *RateLimiter) get(path string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	// drop idle buckets at most once a minute
	if now.Sub(rl.swept) > time.Minute {
		for p, b := range rl.buckets {
			if now.Sub(b.seen) > 3*time.Minute {
				delete(rl.buckets, p)
			}
		}
		rl.swept = now
	}
	if b, ok := rl.buckets[path]; ok {
		b.seen = now
		return b.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.buckets[path] = &bucket{lim: l, seen: now}
	return l
}

// Allow reports whether a call to path may go out now.
func (rl *RateLimiter) Allow(path string) bool { return rl.get(path).Allow() }

// RateLimit throttles the open auth endpoints (login, OTP request and
// resend). Other requests pass through.
func RateLimit(rl *RateLimiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if isOpen(req.URL.Path) && !rl.Allow(req.URL.Path) {
				return nil, ErrThrottled
			}
			return next.RoundTrip(req)
		})
	}
}
