package resilience

import (
	"context"
	"fmt"
	"time"
)

// TimeoutConfig defines the timeout hierarchy of the webhook path,
// outermost first:
//
//	HTTP write timeout
//	  Event workflow (detached from the request)
//	    Provider call
//	    Database statement
//
// Each layer must finish before its parent gives up.
type TimeoutConfig struct {
	HTTPWrite    time.Duration
	Event        time.Duration
	ProviderCall time.Duration
	Database     time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPWrite:    40 * time.Second,
		Event:        30 * time.Second,
		ProviderCall: 5 * time.Second,
		Database:     5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPWrite:    4 * time.Second,
		Event:        3 * time.Second,
		ProviderCall: time.Second,
		Database:     time.Second,
	}
}

// Validate checks that every layer fits inside its parent
func (tc *TimeoutConfig) Validate() error {
	if tc.ProviderCall <= 0 || tc.Database <= 0 {
		return fmt.Errorf("provider and database timeouts must be positive")
	}
	if tc.Event <= tc.ProviderCall || tc.Event <= tc.Database {
		return fmt.Errorf("event timeout %s must exceed provider (%s) and database (%s) timeouts",
			tc.Event, tc.ProviderCall, tc.Database)
	}
	if tc.HTTPWrite <= tc.Event {
		return fmt.Errorf("http write timeout %s must exceed event timeout %s", tc.HTTPWrite, tc.Event)
	}
	return nil
}

// EventContext creates a context for one webhook workflow
func (tc *TimeoutConfig) EventContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Event)
}

// ProviderContext creates a context for one provider call
func (tc *TimeoutConfig) ProviderContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ProviderCall)
}

// DatabaseContext creates a context for one database statement
func (tc *TimeoutConfig) DatabaseContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Database)
}
