package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy maps a 0-based retry attempt to the wait before it
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows BaseDelay by Multiplier per attempt up to MaxDelay.
// Jitter spreads each delay by up to that fraction in either direction.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
}

// ProviderBackoff paces PortOne read retries: about 200ms, 400ms, 800ms,
// then 1s. A full run fits inside one webhook event budget.
func ProviderBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return b.BaseDelay
	}

	d := float64(b.BaseDelay)
	for i := 0; i < attempt && d < float64(b.MaxDelay); i++ {
		d *= b.Multiplier
	}
	d = min(d, float64(b.MaxDelay))

	if b.Jitter > 0 {
		d += d * b.Jitter * (2*rand.Float64() - 1)
	}
	if d < 0 {
		return b.BaseDelay
	}
	return time.Duration(d)
}

// FixedBackoff waits the same Delay before every attempt
type FixedBackoff struct {
	Delay time.Duration
}

func (b *FixedBackoff) NextDelay(int) time.Duration { return b.Delay }

// Sleep pauses for d. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
