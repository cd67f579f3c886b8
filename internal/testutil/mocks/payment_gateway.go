package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockPaymentGateway is a testify mock of ports.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*ports.PaymentInfo, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.PaymentInfo), args.Error(1)
}

func (m *MockPaymentGateway) CreateScheduledCharge(ctx context.Context, req *ports.ScheduleChargeRequest) (*ports.ScheduledCharge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ScheduledCharge), args.Error(1)
}

func (m *MockPaymentGateway) ListScheduled(ctx context.Context, billingKey string, from, until time.Time) ([]ports.ScheduleItem, error) {
	args := m.Called(ctx, billingKey, from, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.ScheduleItem), args.Error(1)
}

func (m *MockPaymentGateway) CancelScheduled(ctx context.Context, scheduleIDs []string) ([]string, error) {
	args := m.Called(ctx, scheduleIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPaymentGateway) ChargeBillingKey(ctx context.Context, req *ports.BillingKeyChargeRequest) (*ports.BillingKeyChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.BillingKeyChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) CancelPayment(ctx context.Context, paymentID, reason string) error {
	args := m.Called(ctx, paymentID, reason)
	return args.Error(0)
}

// MockDeliveryGuard is a testify mock of ports.DeliveryGuard
type MockDeliveryGuard struct {
	mock.Mock
}

func (m *MockDeliveryGuard) Claim(ctx context.Context, status, paymentID string) (ports.ClaimResult, error) {
	args := m.Called(ctx, status, paymentID)
	return args.Get(0).(ports.ClaimResult), args.Error(1)
}

func (m *MockDeliveryGuard) Complete(ctx context.Context, status, paymentID string) error {
	return m.Called(ctx, status, paymentID).Error(0)
}

func (m *MockDeliveryGuard) Release(ctx context.Context, status, paymentID string) error {
	return m.Called(ctx, status, paymentID).Error(0)
}
