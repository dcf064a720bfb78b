package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window. Zero disables
	// limiting.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// counter holds the request counts of the current and previous fixed
// windows for one client.
type counter struct {
	start    time.Time
	current  int
	previous int
}

// Limiter is a sliding window rate limiter. The previous window count is
// weighted by how much of it still overlaps the sliding window.
type Limiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		cfg:      cfg,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

// Allow records a request from key at now and reports whether it is within
// the limit, with the remaining budget and the end of the current window.
func (l *Limiter) Allow(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.cfg.Window)
	c, found := l.counters[key]
	switch {
	case !found:
		c = &counter{start: start}
		l.counters[key] = c
	case start.Sub(c.start) >= 2*l.cfg.Window:
		c.start, c.previous, c.current = start, 0, 0
	case start.After(c.start):
		c.start, c.previous, c.current = start, c.current, 0
	}

	overlap := 1 - float64(now.Sub(start))/float64(l.cfg.Window)
	estimate := float64(c.previous)*overlap + float64(c.current)
	reset = start.Add(l.cfg.Window)
	if estimate >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	c.current++
	return max(0, int(float64(l.cfg.Max)-estimate-1)), reset, true
}

// Prune forgets clients that have been idle for two windows.
func (l *Limiter) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.start) >= 2*l.cfg.Window {
			delete(l.counters, key)
		}
	}
}

// Run prunes idle clients every two windows until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Prune(now)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a JSON body.
// Every response carries the X-RateLimit-* headers.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if l.cfg.Max <= 0 {
			return next
		}
		limit := strconv.Itoa(l.cfg.Max)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.now()
			remaining, reset, ok := l.Allow(l.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				retry := max(0, reset.Sub(now).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is shorthand for NewLimiter(cfg).Middleware().
func RateLimit(cfg RateLimitConfig) Middleware {
	return NewLimiter(cfg).Middleware()
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
