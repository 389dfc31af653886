/*
Package limiter provides keyed rate limiting based on the token bucket algorithm (rate.Limiter).

A KeyedLimiter holds one limiter per key: the client throttles typing events per channel with
it, and the fake backend throttles requests per client IP. A cleanup goroutine periodically
removes idle limiters until Close is called.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatsdk/internal/pkg/logx"
	"chatsdk/internal/pkg/resp"
	"chatsdk/pkg/errs"
)

// CleanupInterval is the period of the idle limiter cleanup.
const CleanupInterval = 3 * time.Minute

// KeyedLimiter implements a rate limiter per key.
type KeyedLimiter struct {
	// mu is used to protect concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from key to its *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the rate (rate.Limit) of every limiter, defining the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size) of every limiter.
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter creates and returns a new KeyedLimiter instance.
// It accepts rate r and burst capacity b, and starts a background goroutine to periodically clean up idle limiters.
func NewKeyedLimiter(r rate.Limit, b int) *KeyedLimiter {
	l := &KeyedLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go l.cleanUp(CleanupInterval)

	return l
}

// Get retrieves the rate limiter of key, creating it when missing.
// It uses a Double-Checked Locking pattern to ensure concurrent-safe creation of new limiters.
func (l *KeyedLimiter) Get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[key]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[key] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// Allow reports whether an event for key may happen now.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.Get(key).Allow()
}

// Forget drops the limiter of key, so that the next event is allowed immediately.
func (l *KeyedLimiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limits, key)
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limits)
}

// Close stops the cleanup goroutine.
func (l *KeyedLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanUp periodically removes idle limiters.
// A key is considered idle and removed if its token bucket is full.
func (l *KeyedLimiter) cleanUp(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.removeIdle(now)
		}
	}
}

func (l *KeyedLimiter) removeIdle(now time.Time) int {
	l.mu.Lock()
	count := 0
	for key, limiter := range l.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(l.limits, key)
			count++
		}
	}
	remaining := len(l.limits)
	l.mu.Unlock()

	logx.Debug("Rate limiter cleanup finished", "removed", count, "remaining", remaining)
	return count
}

// Middleware returns an HTTP middleware that rate limits incoming requests per client IP.
// If a request exceeds the limit, it responds with a 429 Too Many Requests error.
func (l *KeyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !l.Allow(ip) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimit))
			return
		}

		next.ServeHTTP(w, r)
	})
}
