package ports

import (
	"context"
	"time"
)

// PaymentStatus is the provider-side status of a payment
type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusReady     PaymentStatus = "READY"
)

// Customer identifies the payer at the provider
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// PaymentInfo is the subset of a provider payment record the billing flow needs
type PaymentInfo struct {
	PaidAt      time.Time
	Customer    *Customer
	ID          string
	BillingKey  string
	OrderName   string
	Status      PaymentStatus
	Currency    string
	TotalAmount int64
}

// ScheduleChargeRequest asks the provider to charge a billing key at TimeToPay
type ScheduleChargeRequest struct {
	TimeToPay  time.Time
	Customer   *Customer
	ScheduleID string // becomes the payment id of the future charge
	BillingKey string
	OrderName  string
	Amount     int64
}

// ScheduledCharge is the provider's acknowledgement of a scheduled charge
type ScheduledCharge struct {
	ScheduleID string
}

// ScheduleItem is a pending scheduled charge as listed by the provider
type ScheduleItem struct {
	TimeToPay time.Time
	ID        string
	PaymentID string
	Status    string
}

// BillingKeyChargeRequest charges a billing key immediately
type BillingKeyChargeRequest struct {
	Customer   *Customer
	PaymentID  string
	BillingKey string
	OrderName  string
	Amount     int64
}

// BillingKeyChargeResult holds the provider's raw answer to a billing-key charge
type BillingKeyChargeResult struct {
	PaidAt    *time.Time             `json:"paidAt,omitempty"`
	Payment   map[string]interface{} `json:"payment,omitempty"`
	PaymentID string                 `json:"paymentId"`
}

// PaymentGateway is the outbound port to the payment provider.
// Errors are *pkgerrors.ProviderError when the provider answered with a
// failure and *pkgerrors.TransportError when it could not be reached.
type PaymentGateway interface {
	// GetPayment fetches a payment by id
	GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)

	// CreateScheduledCharge registers a future charge
	CreateScheduledCharge(ctx context.Context, req *ScheduleChargeRequest) (*ScheduledCharge, error)

	// ListScheduled lists scheduled charges for billingKey whose time to pay
	// falls within [from, until]
	ListScheduled(ctx context.Context, billingKey string, from, until time.Time) ([]ScheduleItem, error)

	// CancelScheduled revokes scheduled charges and returns the revoked ids
	CancelScheduled(ctx context.Context, scheduleIDs []string) ([]string, error)

	// ChargeBillingKey charges a billing key immediately
	ChargeBillingKey(ctx context.Context, req *BillingKeyChargeRequest) (*BillingKeyChargeResult, error)

	// CancelPayment cancels a completed payment
	CancelPayment(ctx context.Context, paymentID, reason string) error
}
