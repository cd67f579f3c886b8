package ports

import (
	"context"
	"time"
)

// ChargeRequest contains parameters for an immediate billing-key charge
type ChargeRequest struct {
	BillingKey string
	OrderName  string
	CustomerID string
	Amount     int64
}

// ChargeResponse is returned once the provider accepted a billing-key charge.
// The ledger is written later, when the Paid webhook arrives.
type ChargeResponse struct {
	PaidAt    *time.Time
	Payment   map[string]interface{}
	PaymentID string
}

// CancelRequest contains parameters for cancelling a captured payment
type CancelRequest struct {
	TransactionKey string
	Reason         string
}

// PaymentService defines the port for provider-initiated payment operations
type PaymentService interface {
	// Charge charges a stored billing key immediately
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// Cancel asks the provider to cancel a payment
	Cancel(ctx context.Context, req *CancelRequest) error
}
