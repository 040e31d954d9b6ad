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

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	start time.Time
	count float64
	prev  float64
}

// Limiter approximates a sliding window by weighting the previous fixed
// window's count by how much of it still overlaps the current one.
type Limiter struct {
	max    int
	width  time.Duration
	mu     sync.Mutex
	window map[string]*window
}

// NewLimiter returns a Limiter allowing limit requests per width.
func NewLimiter(limit int, width time.Duration) *Limiter {
	return &Limiter{max: limit, width: width, window: make(map[string]*window)}
}

// Allow records a request for key at now if it fits in the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.width)
	w, ok := l.window[key]
	switch {
	case !ok:
		w = &window{start: start}
		l.window[key] = w
	case start.Sub(w.start) >= 2*l.width:
		*w = window{start: start}
	case start.After(w.start):
		*w = window{start: start, prev: w.count}
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.width)
	used := w.prev*math.Max(overlap, 0) + w.count
	reset := w.start.Add(l.width)

	if used >= float64(l.max) {
		return Decision{ResetAt: reset}
	}
	w.count++
	return Decision{
		Allowed:   true,
		Remaining: max(int(float64(l.max)-used-1), 0),
		ResetAt:   reset,
	}
}

// Sweep drops clients idle for two full windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.window {
		if now.Sub(w.start) >= 2*l.width {
			delete(l.window, key)
		}
	}
}

// RateLimit rejects clients over the limit with 429 and reports the limit in
// X-RateLimit-* headers on every response.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, NewLimiter(cfg.Max, cfg.Window))
}

// RateLimitWithCleanup is RateLimit plus a goroutine that sweeps idle
// clients every two windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg.Max, cfg.Window)
	go func() {
		t := time.NewTicker(2 * cfg.Window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.Sweep(now)
			}
		}
	}()
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *Limiter) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(keyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				wait := math.Ceil(max(time.Until(d.ResetAt), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(wait)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
