package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corner-store/storefront/internal/app/system"
	"github.com/corner-store/storefront/pkg/logger"
)

// maxTrackedClients caps the limiter table; beyond it the table is reset
// wholesale rather than evicted entry by entry.
const maxTrackedClients = 10000

var _ system.Service = (*RateLimiter)(nil)

// RateLimiter provides per-client rate limiting. It is a lifecycle-managed
// service: the cleanup sweep that keeps abandoned clients from accumulating
// starts with the application and stops with it.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger

	interval time.Duration
	runMu    sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
}

// NewRateLimiter creates a new rate limiter sweeping its client table every 10
// minutes until rescheduled.
func NewRateLimiter(requestsPerSecond int, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
		interval: 10 * time.Minute,
	}
}

// WithCleanupInterval replaces the sweep cadence. Call before Start.
func (rl *RateLimiter) WithCleanupInterval(interval time.Duration) {
	rl.runMu.Lock()
	rl.interval = interval
	rl.runMu.Unlock()
}

// getLimiter returns the rate limiter for the given key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}

	return limiter
}

// Handler returns the rate limiting middleware handler. Requests are keyed by
// session header when present, otherwise by remote address.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Session-ID")
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			rl.log.WithField("key", key).WithField("path", r.URL.Path).
				Warn("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) Name() string { return "ratelimit-cleanup" }

func (rl *RateLimiter) Start(ctx context.Context) error {
	rl.runMu.Lock()
	if rl.running {
		rl.runMu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	rl.cancel = cancel
	rl.running = true
	interval := rl.interval
	rl.runMu.Unlock()

	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()

	return nil
}

func (rl *RateLimiter) Stop(ctx context.Context) error {
	rl.runMu.Lock()
	if !rl.running {
		rl.runMu.Unlock()
		return nil
	}
	cancel := rl.cancel
	rl.running = false
	rl.cancel = nil
	rl.runMu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rl.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// sweep resets the limiter table once it grows past the client cap.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > maxTrackedClients {
		rl.log.WithField("clients", len(rl.limiters)).Debug("rate limiter table reset")
		rl.limiters = make(map[string]*rate.Limiter)
	}
}
