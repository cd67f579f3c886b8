package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kevin07696/billing-orchestrator/pkg/encoding"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	idleClientTTL     = 5 * time.Minute
)

type clientBucket struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for
// idleClientTTL are swept, and the stalest bucket makes room when the table is full.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	maxSize int
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		maxSize: maxTrackedClients,
		logger:  logger,
		now:     time.Now,
		clients: map[string]*clientBucket{},
		stop:    make(chan struct{}),
	}
	go rl.sweepEvery(idleClientTTL)
	return rl
}

func (rl *RateLimiter) sweepEvery(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := rl.cleanup(); n > 0 {
				rl.logger.Debug("Swept idle rate limit buckets", zap.Int("removed", n))
			}
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops buckets unused for idleClientTTL and returns how many went
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleClientTTL)
	before := len(rl.clients)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	return before - len(rl.clients)
}

// Shutdown stops the sweeper. Safe to call more than once.
func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow spends one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= rl.maxSize {
			rl.evictStalest()
		}
		c = &clientBucket{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	return c.bucket.AllowN(now, 1)
}

// evictStalest must be called with mu held
func (rl *RateLimiter) evictStalest() {
	var victim string
	var oldest time.Time
	for key, c := range rl.clients {
		if victim == "" || c.lastSeen.Before(oldest) {
			victim, oldest = key, c.lastSeen
		}
	}
	delete(rl.clients, victim)
}

// Middleware answers 429 with the API envelope once the caller's bucket is empty
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteHost(r)
		if rl.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}
		rl.logger.Debug("Rate limited", zap.String("client_ip", ip), zap.String("path", r.URL.Path))
		w.Header().Set("Retry-After", "1")
		_ = encoding.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success": false,
			"message": "rate limit exceeded",
		})
	})
}

// remoteHost drops the port from RemoteAddr. Behind a proxy, run chi's
// RealIP first so RemoteAddr holds the client address.
func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
