package payment

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	serviceports "github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"github.com/kevin07696/billing-orchestrator/internal/testutil/fixtures"
	"github.com/kevin07696/billing-orchestrator/internal/testutil/mocks"
	pkgerrors "github.com/kevin07696/billing-orchestrator/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupService(t *testing.T) (*Service, *mocks.MockPaymentGateway) {
	t.Helper()
	gateway := &mocks.MockPaymentGateway{}
	t.Cleanup(func() { gateway.AssertExpectations(t) })

	svc := NewService(gateway, zap.NewNop())
	svc.newPaymentID = func() string { return "payment-0123456789abcdef" }
	return svc, gateway
}

func validCharge() *serviceports.ChargeRequest {
	return &serviceports.ChargeRequest{
		BillingKey: "bk_1",
		OrderName:  "Monthly plan",
		CustomerID: "cust_1",
		Amount:     9900,
	}
}

func TestNewPaymentID(t *testing.T) {
	pattern := regexp.MustCompile(`^payment-[0-9a-f]{16}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewPaymentID()
		require.Regexp(t, pattern, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestCharge_Success(t *testing.T) {
	svc, gateway := setupService(t)
	paidAt := fixtures.TimePtr(fixtures.DefaultPaidAt)

	gateway.On("ChargeBillingKey", mock.Anything, &ports.BillingKeyChargeRequest{
		PaymentID:  "payment-0123456789abcdef",
		BillingKey: "bk_1",
		OrderName:  "Monthly plan",
		Amount:     9900,
		Customer:   &ports.Customer{ID: "cust_1"},
	}).Return(&ports.BillingKeyChargeResult{
		PaymentID: "payment-0123456789abcdef",
		PaidAt:    paidAt,
		Payment:   map[string]interface{}{"pgTxId": "pg_1"},
	}, nil).Once()

	resp, err := svc.Charge(context.Background(), validCharge())
	require.NoError(t, err)
	assert.Equal(t, "payment-0123456789abcdef", resp.PaymentID)
	assert.Equal(t, paidAt, resp.PaidAt)
	assert.Equal(t, "pg_1", resp.Payment["pgTxId"])
}

func TestCharge_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *serviceports.ChargeRequest)
		field  string
	}{
		{"missing billing key", func(r *serviceports.ChargeRequest) { r.BillingKey = "" }, "billingKey"},
		{"missing order name", func(r *serviceports.ChargeRequest) { r.OrderName = "" }, "orderName"},
		{"missing customer", func(r *serviceports.ChargeRequest) { r.CustomerID = "" }, "customer.id"},
		{"zero amount", func(r *serviceports.ChargeRequest) { r.Amount = 0 }, "amount"},
		{"negative amount", func(r *serviceports.ChargeRequest) { r.Amount = -100 }, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupService(t)
			req := validCharge()
			tt.mutate(req)

			_, err := svc.Charge(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))

			var de *domain.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.field, de.Details["field"])
		})
	}
}

func TestCharge_ProviderFailure(t *testing.T) {
	svc, gateway := setupService(t)
	providerErr := pkgerrors.NewProviderError("charge_billing_key", 400, "BILLING_KEY_NOT_FOUND", "unknown key")
	gateway.On("ChargeBillingKey", mock.Anything, mock.Anything).Return(nil, providerErr).Once()

	_, err := svc.Charge(context.Background(), validCharge())
	require.Error(t, err)
	assert.True(t, domain.IsUpstreamError(err))
	assert.ErrorIs(t, err, providerErr)
}

func TestCancel(t *testing.T) {
	t.Run("default reason", func(t *testing.T) {
		svc, gateway := setupService(t)
		gateway.On("CancelPayment", mock.Anything, "pay_1", DefaultCancelReason).Return(nil).Once()

		require.NoError(t, svc.Cancel(context.Background(), &serviceports.CancelRequest{TransactionKey: "pay_1"}))
	})

	t.Run("explicit reason", func(t *testing.T) {
		svc, gateway := setupService(t)
		gateway.On("CancelPayment", mock.Anything, "pay_1", "customer request").Return(nil).Once()

		err := svc.Cancel(context.Background(), &serviceports.CancelRequest{TransactionKey: "pay_1", Reason: "customer request"})
		require.NoError(t, err)
	})

	t.Run("missing key", func(t *testing.T) {
		svc, _ := setupService(t)
		err := svc.Cancel(context.Background(), &serviceports.CancelRequest{})
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("provider failure", func(t *testing.T) {
		svc, gateway := setupService(t)
		gateway.On("CancelPayment", mock.Anything, "pay_1", mock.Anything).
			Return(pkgerrors.NewTransportError("cancel_payment", context.DeadlineExceeded)).Once()

		err := svc.Cancel(context.Background(), &serviceports.CancelRequest{TransactionKey: "pay_1"})
		assert.True(t, domain.IsUpstreamError(err))
	})
}
