package ports

import "context"

// ClaimResult is the outcome of claiming a webhook delivery
type ClaimResult int

const (
	// ClaimAcquired means the caller owns the delivery and must Complete or Release it
	ClaimAcquired ClaimResult = iota
	// ClaimInFlight means another worker is processing the same delivery
	ClaimInFlight
	// ClaimDone means the delivery was already processed successfully
	ClaimDone
)

func (c ClaimResult) String() string {
	switch c {
	case ClaimAcquired:
		return "acquired"
	case ClaimInFlight:
		return "in_flight"
	case ClaimDone:
		return "done"
	default:
		return "unknown"
	}
}

// DeliveryGuard is a fast-path dedupe in front of the ledger lock.
// It is advisory: the ledger remains the source of truth.
type DeliveryGuard interface {
	Claim(ctx context.Context, status, paymentID string) (ClaimResult, error)
	Complete(ctx context.Context, status, paymentID string) error
	Release(ctx context.Context, status, paymentID string) error
}
