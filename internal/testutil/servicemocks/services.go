// Package servicemocks holds testify mocks of the service ports used by the
// HTTP handlers.
package servicemocks

import (
	"context"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/services/billing"
	"github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"github.com/stretchr/testify/mock"
)

// MockBillingService is a testify mock of ports.BillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) HandleEvent(ctx context.Context, event billing.Event) (*billing.EventResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.EventResult), args.Error(1)
}

func (m *MockBillingService) GetSubscription(ctx context.Context, transactionKey string) (*domain.Subscription, error) {
	args := m.Called(ctx, transactionKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

// MockPaymentService is a testify mock of ports.PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResponse), args.Error(1)
}

func (m *MockPaymentService) Cancel(ctx context.Context, req *ports.CancelRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

var (
	_ ports.BillingService = (*MockBillingService)(nil)
	_ ports.PaymentService = (*MockPaymentService)(nil)
)
