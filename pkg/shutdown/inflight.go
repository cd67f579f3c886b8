package shutdown

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts running work. Once draining starts it refuses new
// work and Shutdown blocks until the count reaches zero or ctx ends.
type InFlightTracker struct {
	name   string
	logger *zap.Logger

	mu       sync.Mutex
	active   int
	draining bool
	idle     chan struct{}
}

func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{name: name, logger: logger}
}

// Add reserves a slot and reports false while draining
func (t *InFlightTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.active++
	return true
}

// Done releases a slot taken by Add
func (t *InFlightTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active--
	if t.active == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	if t.active == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle, pending := t.idle, t.active
	t.mu.Unlock()

	t.logger.Info("Draining in-flight work", zap.String("tracker", t.name), zap.Int("pending", pending))

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		t.logger.Warn("Drain deadline reached", zap.String("tracker", t.name))
		return ctx.Err()
	}
}

func (t *InFlightTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draining
}

// Middleware wraps each request in Add/Done and answers 503 while draining
func (t *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer t.Done()
		next.ServeHTTP(w, r)
	})
}
