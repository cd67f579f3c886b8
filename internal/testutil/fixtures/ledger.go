package fixtures

import (
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"github.com/kevin07696/billing-orchestrator/pkg/timeutil"
)

// DefaultPaidAt is the charge instant builders start from
var DefaultPaidAt = time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)

// LedgerEntryBuilder provides fluent API for building test ledger rows.
type LedgerEntryBuilder struct {
	entry *domain.LedgerEntry
}

// NewPaidEntry creates a Paid row for one 30-day period starting at DefaultPaidAt.
func NewPaidEntry() *LedgerEntryBuilder {
	b := &LedgerEntryBuilder{
		entry: &domain.LedgerEntry{
			TransactionKey: "pay_1",
			Amount:         9900, // KRW
			Status:         domain.LedgerStatusPaid,
		},
	}
	return b.WithPeriodStart(DefaultPaidAt)
}

func (b *LedgerEntryBuilder) WithTransactionKey(key string) *LedgerEntryBuilder {
	b.entry.TransactionKey = key
	return b
}

func (b *LedgerEntryBuilder) WithAmount(amount int64) *LedgerEntryBuilder {
	b.entry.Amount = amount
	return b
}

// WithPeriodStart recomputes end, grace and next charge from start
func (b *LedgerEntryBuilder) WithPeriodStart(start time.Time) *LedgerEntryBuilder {
	b.entry.StartAt = start
	b.entry.EndAt = start.Add(domain.BillingPeriod)
	b.entry.EndGraceAt = timeutil.GraceDeadline(b.entry.EndAt)
	b.entry.NextScheduleAt = timeutil.NextChargeInstant(b.entry.EndAt, fixedRand{})
	return b
}

func (b *LedgerEntryBuilder) WithSchedule(scheduleID string) *LedgerEntryBuilder {
	b.entry.NextScheduleID = scheduleID
	return b
}

func (b *LedgerEntryBuilder) WithCreatedAt(t time.Time) *LedgerEntryBuilder {
	b.entry.CreatedAt = t
	return b
}

// Build returns a copy so the builder can be reused
func (b *LedgerEntryBuilder) Build() *domain.LedgerEntry {
	e := *b.entry
	return &e
}

// fixedRand yields the 10:00:00 charge slot
type fixedRand struct{}

func (fixedRand) IntN(int) int { return 0 }

// PaymentInfoBuilder builds provider payment records.
type PaymentInfoBuilder struct {
	info *ports.PaymentInfo
}

// NewPaidPayment creates a PAID provider record with a billing key.
func NewPaidPayment() *PaymentInfoBuilder {
	return &PaymentInfoBuilder{
		info: &ports.PaymentInfo{
			ID:          "pay_1",
			BillingKey:  "bk_1",
			OrderName:   "monthly plan",
			Status:      ports.PaymentStatusPaid,
			Currency:    domain.Currency,
			TotalAmount: 9900,
			PaidAt:      DefaultPaidAt,
			Customer:    &ports.Customer{ID: "cust_1"},
		},
	}
}

func (b *PaymentInfoBuilder) WithID(id string) *PaymentInfoBuilder {
	b.info.ID = id
	return b
}

func (b *PaymentInfoBuilder) WithBillingKey(key string) *PaymentInfoBuilder {
	b.info.BillingKey = key
	return b
}

func (b *PaymentInfoBuilder) WithAmount(amount int64) *PaymentInfoBuilder {
	b.info.TotalAmount = amount
	return b
}

func (b *PaymentInfoBuilder) WithStatus(status ports.PaymentStatus) *PaymentInfoBuilder {
	b.info.Status = status
	return b
}

func (b *PaymentInfoBuilder) Build() *ports.PaymentInfo {
	info := *b.info
	if info.Customer != nil {
		c := *info.Customer
		info.Customer = &c
	}
	return &info
}
