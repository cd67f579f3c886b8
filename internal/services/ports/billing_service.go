package ports

import (
	"context"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/services/billing"
)

// BillingService defines the port for webhook-driven ledger operations
type BillingService interface {
	// HandleEvent records a provider Paid or Cancelled notification and
	// reconciles the renewal schedule
	HandleEvent(ctx context.Context, event billing.Event) (*billing.EventResult, error)

	// GetSubscription returns the ledger read model for a transaction key
	GetSubscription(ctx context.Context, transactionKey string) (*domain.Subscription, error)
}
