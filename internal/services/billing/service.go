package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"github.com/kevin07696/billing-orchestrator/pkg/observability"
	"github.com/kevin07696/billing-orchestrator/pkg/timeutil"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one event workflow after it is detached from the request
const DefaultTimeout = 30 * time.Second

// scheduleSearchWindow is how far either side of nextScheduleAt the provider
// schedule list is searched
const scheduleSearchWindow = 24 * time.Hour

// ErrScheduleNotFound is reported when the provider has no schedule matching a ledger row
var ErrScheduleNotFound = errors.New("no provider schedule matches the ledger schedule id")

// Config tunes the service. Zero values fall back to production defaults.
type Config struct {
	Clock         timeutil.Clock
	Rand          timeutil.RandSource
	NewScheduleID func() string
	Timeout       time.Duration
	BillingPeriod time.Duration
}

// Service turns provider webhook events into ledger rows and keeps the
// provider's renewal schedule in step with the ledger
type Service struct {
	ledger        ports.LedgerRepository
	gateway       ports.PaymentGateway
	guard         ports.DeliveryGuard
	clock         timeutil.Clock
	rng           timeutil.RandSource
	newScheduleID func() string
	logger        *zap.Logger
	timeout       time.Duration
	period        time.Duration
}

// NewService creates a new billing service. guard may be nil.
func NewService(
	ledger ports.LedgerRepository,
	gateway ports.PaymentGateway,
	guard ports.DeliveryGuard,
	cfg Config,
	logger *zap.Logger,
) *Service {
	s := &Service{
		ledger:        ledger,
		gateway:       gateway,
		guard:         guard,
		clock:         cfg.Clock,
		rng:           cfg.Rand,
		newScheduleID: cfg.NewScheduleID,
		logger:        logger,
		timeout:       cfg.Timeout,
		period:        cfg.BillingPeriod,
	}
	if s.clock == nil {
		s.clock = timeutil.Now
	}
	if s.rng == nil {
		s.rng = timeutil.DefaultRand
	}
	if s.newScheduleID == nil {
		s.newScheduleID = uuid.NewString
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.period <= 0 {
		s.period = domain.BillingPeriod
	}
	return s
}

// HandleEvent processes one webhook delivery. The returned error is a
// *domain.DomainError whose code determines the response to the sender.
func (s *Service) HandleEvent(ctx context.Context, event Event) (result *EventResult, err error) {
	start := time.Now()
	defer func() {
		observability.RecordWebhookEvent(statusLabel(event.Status), outcomeLabel(result, err), time.Since(start))
	}()

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	// Once started, the workflow runs to completion even if the sender hangs up
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if s.guard != nil {
		claim, gerr := s.guard.Claim(ctx, string(event.Status), event.PaymentID)
		switch {
		case gerr != nil:
			observability.RecordDeliveryGuard("error")
			s.logger.Warn("Delivery guard unavailable, relying on ledger lock",
				zap.String("payment_id", event.PaymentID),
				zap.Error(gerr),
			)
		case claim == ports.ClaimDone:
			observability.RecordDeliveryGuard(claim.String())
			s.logger.Info("Webhook already processed",
				zap.String("payment_id", event.PaymentID),
				zap.String("status", string(event.Status)),
			)
			return &EventResult{Event: event, Outcome: OutcomeDuplicate}, nil
		case claim == ports.ClaimInFlight:
			observability.RecordDeliveryGuard(claim.String())
			return nil, domain.NewDomainError(domain.ErrorCodeDeliveryInFlight, "delivery is already being processed").
				WithDetail("payment_id", event.PaymentID)
		default:
			observability.RecordDeliveryGuard(claim.String())
			defer s.settleDelivery(ctx, event, &err)
		}
	}

	switch event.Status {
	case EventStatusPaid:
		return s.handlePaid(ctx, event)
	default:
		return s.handleCancelled(ctx, event)
	}
}

// GetSubscription returns the ledger read model for a transaction key
func (s *Service) GetSubscription(ctx context.Context, transactionKey string) (*domain.Subscription, error) {
	if transactionKey == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "transaction key is required").
			WithDetail("field", "transaction_key")
	}

	entries, err := s.ledger.ListByTransactionKey(ctx, transactionKey)
	if errors.Is(err, domain.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrorCodeLedgerEntryNotFound, "no ledger entries for transaction key", err).
			WithDetail("transaction_key", transactionKey)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorage, "failed to read ledger", err)
	}

	return domain.NewSubscription(transactionKey, entries), nil
}

func (s *Service) handlePaid(ctx context.Context, event Event) (*EventResult, error) {
	info, err := s.gateway.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeUpstream, "failed to get payment", err).
			WithDetail("payment_id", event.PaymentID)
	}
	if info.Status != "" && info.Status != ports.PaymentStatusPaid {
		s.logger.Warn("Paid webhook for payment the provider does not report as paid",
			zap.String("payment_id", info.ID),
			zap.String("provider_status", string(info.Status)),
		)
	}

	now := s.clock().UTC()
	endAt := now.Add(s.period)
	entry := &domain.LedgerEntry{
		TransactionKey: info.ID,
		Amount:         info.TotalAmount,
		Status:         domain.LedgerStatusPaid,
		StartAt:        now,
		EndAt:          endAt,
		EndGraceAt:     timeutil.GraceDeadline(endAt),
		NextScheduleAt: timeutil.NextChargeInstant(endAt, s.rng),
		NextScheduleID: s.newScheduleID(),
	}
	result := &EventResult{Event: event, Outcome: OutcomeRecorded, Entry: entry}

	err = s.ledger.WithKeyLock(ctx, info.ID, func(ctx context.Context, q ports.LedgerQuerier) error {
		existing, err := q.FindPaidCovering(ctx, info.ID, now)
		if err == nil {
			result.Outcome = OutcomeDuplicate
			result.Entry = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNoRows) {
			return err
		}
		return q.Insert(ctx, entry)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorage, "failed to append paid entry", err).
			WithDetail("transaction_key", info.ID)
	}

	if result.Outcome == OutcomeDuplicate {
		s.logger.Info("Paid event already recorded for current period",
			zap.String("transaction_key", info.ID),
			zap.Int64("ledger_id", result.Entry.ID),
		)
		return result, nil
	}

	observability.RecordLedgerAppend(string(domain.LedgerStatusPaid))
	s.logger.Info("Recorded paid period",
		zap.String("transaction_key", entry.TransactionKey),
		zap.Int64("amount", entry.Amount),
		zap.Time("end_at", entry.EndAt),
		zap.Time("next_schedule_at", entry.NextScheduleAt),
		zap.String("schedule_id", entry.NextScheduleID),
	)

	if info.BillingKey == "" {
		s.logger.Info("Payment has no billing key, renewal not scheduled",
			zap.String("transaction_key", entry.TransactionKey),
		)
		return result, nil
	}

	req := &ports.ScheduleChargeRequest{
		ScheduleID: entry.NextScheduleID,
		BillingKey: info.BillingKey,
		OrderName:  info.OrderName,
		Amount:     info.TotalAmount,
		TimeToPay:  entry.NextScheduleAt,
	}
	if info.Customer != nil && info.Customer.ID != "" {
		req.Customer = &ports.Customer{ID: info.Customer.ID}
	}
	if _, err := s.gateway.CreateScheduledCharge(ctx, req); err != nil {
		s.reconciliationWarning(result, StageScheduleCreate, entry.NextScheduleID, err)
	}

	return result, nil
}

func (s *Service) handleCancelled(ctx context.Context, event Event) (*EventResult, error) {
	result := &EventResult{Event: event, Outcome: OutcomeRecorded}
	var found *domain.LedgerEntry

	err := s.ledger.WithKeyLock(ctx, event.PaymentID, func(ctx context.Context, q ports.LedgerQuerier) error {
		latest, err := q.Latest(ctx, event.PaymentID)
		if err != nil {
			return err
		}
		if latest.IsCancel() {
			result.Outcome = OutcomeDuplicate
			result.Entry = latest
			return nil
		}

		reversal := domain.Reverse(latest)
		if err := q.Insert(ctx, reversal); err != nil {
			return err
		}
		found = latest
		result.Entry = reversal
		return nil
	})
	if errors.Is(err, domain.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrorCodeLedgerEntryNotFound, "no ledger entry to cancel", err).
			WithDetail("payment_id", event.PaymentID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorage, "failed to append cancel entry", err).
			WithDetail("transaction_key", event.PaymentID)
	}

	if result.Outcome == OutcomeDuplicate {
		s.logger.Info("Cancellation already recorded",
			zap.String("transaction_key", event.PaymentID),
			zap.Int64("ledger_id", result.Entry.ID),
		)
		return result, nil
	}

	observability.RecordLedgerAppend(string(domain.LedgerStatusCancel))
	s.logger.Info("Recorded cancellation",
		zap.String("transaction_key", result.Entry.TransactionKey),
		zap.Int64("amount", result.Entry.Amount),
		zap.String("schedule_id", result.Entry.NextScheduleID),
	)

	s.revokeRenewal(ctx, found, result)
	return result, nil
}

// revokeRenewal cancels the provider schedule created for found. Failures are
// recorded as warnings; the cancellation itself is already committed.
func (s *Service) revokeRenewal(ctx context.Context, found *domain.LedgerEntry, result *EventResult) {
	info, err := s.gateway.GetPayment(ctx, found.TransactionKey)
	if err != nil {
		s.reconciliationWarning(result, StagePaymentLookup, found.NextScheduleID, err)
		return
	}

	if info.BillingKey == "" || !found.HasNextSchedule() {
		s.logger.Debug("No renewal schedule to revoke",
			zap.String("transaction_key", found.TransactionKey),
		)
		return
	}

	from := found.NextScheduleAt.Add(-scheduleSearchWindow)
	until := found.NextScheduleAt.Add(scheduleSearchWindow)
	items, err := s.gateway.ListScheduled(ctx, info.BillingKey, from, until)
	if err != nil {
		s.reconciliationWarning(result, StageScheduleLookup, found.NextScheduleID, err)
		return
	}

	var match *ports.ScheduleItem
	for i := range items {
		if items[i].PaymentID == found.NextScheduleID {
			match = &items[i]
			break
		}
	}
	if match == nil {
		s.reconciliationWarning(result, StageScheduleLookup, found.NextScheduleID, ErrScheduleNotFound)
		return
	}

	revoked, err := s.gateway.CancelScheduled(ctx, []string{match.ID})
	if err != nil {
		s.reconciliationWarning(result, StageScheduleCancel, found.NextScheduleID, err)
		return
	}

	s.logger.Info("Revoked renewal schedule",
		zap.String("transaction_key", found.TransactionKey),
		zap.String("schedule_id", found.NextScheduleID),
		zap.Strings("revoked_schedule_ids", revoked),
	)
}

func (s *Service) reconciliationWarning(result *EventResult, stage, scheduleID string, err error) {
	result.warn(stage, scheduleID, err)
	observability.RecordReconciliationWarning(string(result.Event.Status), stage)

	fields := []zap.Field{
		zap.String("payment_id", result.Event.PaymentID),
		zap.String("status", string(result.Event.Status)),
		zap.String("stage", stage),
		zap.String("schedule_id", scheduleID),
		zap.Error(err),
	}
	if result.NeedsAttention() {
		s.logger.Error("Renewal schedule missing", fields...)
		return
	}
	s.logger.Warn("Provider schedule left for manual cleanup", fields...)
}

// settleDelivery marks a claimed delivery done, or releases it so the
// provider's retry is processed
func (s *Service) settleDelivery(ctx context.Context, event Event, errp *error) {
	var gerr error
	if *errp != nil {
		gerr = s.guard.Release(ctx, string(event.Status), event.PaymentID)
	} else {
		gerr = s.guard.Complete(ctx, string(event.Status), event.PaymentID)
	}
	if gerr != nil {
		s.logger.Warn("Failed to settle delivery guard",
			zap.String("payment_id", event.PaymentID),
			zap.Error(gerr),
		)
	}
}

func validateEvent(event Event) error {
	if event.PaymentID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "payment_id is required").
			WithDetail("field", "payment_id")
	}
	if event.Status == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "status is required").
			WithDetail("field", "status")
	}
	if !event.Status.IsValid() {
		return domain.NewDomainError(domain.ErrorCodeValidationUnknownStatus, fmt.Sprintf("unknown status %q", event.Status)).
			WithDetail("status", string(event.Status))
	}
	return nil
}

func statusLabel(status EventStatus) string {
	if status.IsValid() {
		return string(status)
	}
	return "unknown"
}

func outcomeLabel(result *EventResult, err error) string {
	if err == nil {
		if result == nil {
			return "unknown"
		}
		return string(result.Outcome)
	}
	switch {
	case domain.IsValidationError(err):
		return "validation_error"
	case domain.IsNotFoundError(err):
		return "not_found"
	case domain.IsUpstreamError(err):
		return "upstream_error"
	case domain.IsStorageError(err):
		return "storage_error"
	case domain.IsDeliveryInFlight(err):
		return "in_flight"
	default:
		return "internal_error"
	}
}
