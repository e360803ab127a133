package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
)

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// limiter keeps one bucket per key. A batch save fans out one PUT per row,
// so burst is sized at twice the steady rate.
type limiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      float64
	burst     float64
	idle      time.Duration // a bucket untouched this long is full again
	lastSweep time.Time
	now       func() time.Time
}

func newLimiter(rps int) *limiter {
	l := &limiter{
		buckets: map[string]*tokenBucket{},
		rate:    float64(rps),
		burst:   float64(2 * rps),
		now:     time.Now,
	}
	l.idle = 2 * time.Duration(l.burst/l.rate*float64(time.Second))
	return l
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	b.tokens = min(l.burst, b.tokens+now.Sub(b.last).Seconds()*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets at most once per idle period. Caller holds l.mu.
func (l *limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.last) >= l.idle {
			delete(l.buckets, k)
		}
	}
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func limit(rps int, key func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(rps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, ok := key(r)
			if ok && !l.allow(k) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles per remote address. rps <= 0 disables it.
func RateLimit(rps int) func(http.Handler) http.Handler {
	return limit(rps, func(r *http.Request) (string, bool) { return clientIP(r), true })
}

// UserRateLimit throttles per authenticated user, so callers sharing one
// address get separate budgets. It must run after Auth; requests without
// a user pass through.
func UserRateLimit(rps int) func(http.Handler) http.Handler {
	return limit(rps, func(r *http.Request) (string, bool) { return UserID(r.Context()) })
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
