package portone

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the breaker position guarding PortOne calls
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

var stateNames = map[CircuitState]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s CircuitState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig tunes the breaker.
// IsFailure filters which errors count; nil counts all of them.
type CircuitBreakerConfig struct {
	IsFailure           func(err error) bool
	Timeout             time.Duration
	MaxFailures         uint32
	MaxRequestsHalfOpen uint32
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, MaxRequestsHalfOpen: 1}
}

// CircuitBreaker trips after MaxFailures consecutive counted failures and
// fails fast for Timeout. Then up to MaxRequestsHalfOpen probes decide
// whether it closes again or reopens.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CircuitState
	changedAt time.Time
	failures  uint32
	probes    uint32
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, now: time.Now, changedAt: time.Now()}
}

// Call runs fn unless the breaker rejects it, then records the outcome
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err)))
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.changedAt) <= cb.cfg.Timeout {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case !failed && cb.state == StateHalfOpen:
		cb.moveTo(StateClosed)
	case !failed:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		cb.moveTo(StateOpen)
	case cb.state == StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.moveTo(StateOpen)
		}
	}
}

// moveTo must be called with mu held
func (cb *CircuitBreaker) moveTo(to CircuitState) {
	if cb.state == to {
		return
	}
	cb.state = to
	cb.changedAt = cb.now()
	cb.failures = 0
	cb.probes = 0
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures is the current run of counted failures while closed
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.changedAt = cb.now()
	cb.failures = 0
	cb.probes = 0
}
