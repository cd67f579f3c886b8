package portone

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// manualClock is advanced explicitly by tests
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *manualClock) {
	clock := &manualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	cb.changedAt = clock.Now()
	return cb, clock
}

func failN(cb *CircuitBreaker, n int, err error) {
	for i := 0; i < n; i++ {
		_ = cb.Call(func() error { return err })
	}
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	config := DefaultCircuitBreakerConfig()

	assert.Equal(t, uint32(5), config.MaxFailures)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, uint32(1), config.MaxRequestsHalfOpen)
	assert.Nil(t, config.IsFailure)
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, MaxRequestsHalfOpen: 1})

	failN(cb, 2, errBoom)
	assert.Equal(t, StateClosed, cb.State())

	failN(cb, 1, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxRequestsHalfOpen: 1})
		failN(cb, 1, errBoom)
		require.Equal(t, StateOpen, cb.State())

		clock.Advance(time.Minute + time.Second)
		require.NoError(t, cb.Call(func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxRequestsHalfOpen: 1})
		failN(cb, 1, errBoom)

		clock.Advance(2 * time.Minute)
		assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("limits concurrent probes", func(t *testing.T) {
		cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, MaxRequestsHalfOpen: 1})
		failN(cb, 1, errBoom)
		clock.Advance(2 * time.Minute)

		release := make(chan struct{})
		done := make(chan error)
		go func() {
			done <- cb.Call(func() error { <-release; return nil })
		}()

		require.Eventually(t, func() bool { return cb.State() == StateHalfOpen }, time.Second, time.Millisecond)
		assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrTooManyRequests)

		close(release)
		assert.NoError(t, <-done)
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	errRejected := errors.New("rejected")
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:         2,
		Timeout:             time.Minute,
		MaxRequestsHalfOpen: 1,
		IsFailure:           func(err error) bool { return !errors.Is(err, errRejected) },
	})

	failN(cb, 10, errRejected)
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())

	failN(cb, 2, errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, MaxRequestsHalfOpen: 1})

	failN(cb, 2, errBoom)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Zero(t, cb.Failures())

	failN(cb, 2, errBoom)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour, MaxRequestsHalfOpen: 1})
	failN(cb, 1, errBoom)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Call(func() error { return nil }))
}

func TestCircuitBreaker_StateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestCircuitBreaker_ConcurrentCalls(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Call(func() error { return nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.State())
}
