package payment

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	serviceports "github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"go.uber.org/zap"
)

// DefaultCancelReason is sent to the provider when the caller gives none
const DefaultCancelReason = "no reason given"

// paymentIDPrefix prefixes every payment id this service asks the provider to use
const paymentIDPrefix = "payment-"

// Service implements serviceports.PaymentService
type Service struct {
	gateway      ports.PaymentGateway
	newPaymentID func() string
	logger       *zap.Logger
}

// NewService creates a new payment service
func NewService(gateway ports.PaymentGateway, logger *zap.Logger) *Service {
	return &Service{
		gateway:      gateway,
		newPaymentID: NewPaymentID,
		logger:       logger,
	}
}

// NewPaymentID returns "payment-" followed by 16 random hex characters
func NewPaymentID() string {
	id := uuid.New()
	return paymentIDPrefix + hex.EncodeToString(id[:8])
}

// Charge charges a stored billing key once. Ledger rows are written when the
// provider's Paid webhook for the returned payment id arrives.
func (s *Service) Charge(ctx context.Context, req *serviceports.ChargeRequest) (*serviceports.ChargeResponse, error) {
	if err := validateCharge(req); err != nil {
		return nil, err
	}

	paymentID := s.newPaymentID()
	result, err := s.gateway.ChargeBillingKey(ctx, &ports.BillingKeyChargeRequest{
		PaymentID:  paymentID,
		BillingKey: req.BillingKey,
		OrderName:  req.OrderName,
		Amount:     req.Amount,
		Customer:   &ports.Customer{ID: req.CustomerID},
	})
	if err != nil {
		s.logger.Error("Billing key charge failed",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeUpstream, "billing key charge failed", err).
			WithDetail("payment_id", paymentID)
	}

	s.logger.Info("Billing key charged",
		zap.String("payment_id", paymentID),
		zap.Int64("amount", req.Amount),
	)

	return &serviceports.ChargeResponse{
		PaymentID: paymentID,
		PaidAt:    result.PaidAt,
		Payment:   result.Payment,
	}, nil
}

// Cancel asks the provider to cancel a payment. The ledger reversal is written
// when the provider's Cancelled webhook arrives.
func (s *Service) Cancel(ctx context.Context, req *serviceports.CancelRequest) error {
	if req == nil || req.TransactionKey == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "transactionKey is required").
			WithDetail("field", "transactionKey")
	}

	reason := req.Reason
	if reason == "" {
		reason = DefaultCancelReason
	}

	if err := s.gateway.CancelPayment(ctx, req.TransactionKey, reason); err != nil {
		s.logger.Error("Payment cancel failed",
			zap.String("payment_id", req.TransactionKey),
			zap.Error(err),
		)
		return domain.WrapError(domain.ErrorCodeUpstream, "payment cancel failed", err).
			WithDetail("payment_id", req.TransactionKey)
	}

	s.logger.Info("Payment cancel requested",
		zap.String("payment_id", req.TransactionKey),
		zap.String("reason", reason),
	)
	return nil
}

func validateCharge(req *serviceports.ChargeRequest) error {
	if req == nil {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "request body is required")
	}
	missing := func(field string) error {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, field+" is required").
			WithDetail("field", field)
	}
	switch {
	case req.BillingKey == "":
		return missing("billingKey")
	case req.OrderName == "":
		return missing("orderName")
	case req.CustomerID == "":
		return missing("customer.id")
	case req.Amount <= 0:
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}
