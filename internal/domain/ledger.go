package domain

import "time"

// LedgerStatus is the kind of event a ledger row records
type LedgerStatus string

const (
	LedgerStatusPaid   LedgerStatus = "Paid"
	LedgerStatusCancel LedgerStatus = "Cancel"
)

// IsValid reports whether s is a known ledger status
func (s LedgerStatus) IsValid() bool {
	return s == LedgerStatusPaid || s == LedgerStatusCancel
}

// LedgerEntry is one immutable row of the payment ledger.
// Rows are only ever appended; the current state of a subscription is the
// latest row for its TransactionKey ordered by CreatedAt.
type LedgerEntry struct {
	StartAt        time.Time    `json:"start_at"`
	EndAt          time.Time    `json:"end_at"`
	EndGraceAt     time.Time    `json:"end_grace_at"`
	NextScheduleAt time.Time    `json:"next_schedule_at"`
	CreatedAt      time.Time    `json:"created_at"`
	TransactionKey string       `json:"transaction_key"`
	NextScheduleID string       `json:"next_schedule_id"`
	Status         LedgerStatus `json:"status"`
	ID             int64        `json:"id"`
	Amount         int64        `json:"amount"`
}

// IsPaid returns true for charge rows
func (e *LedgerEntry) IsPaid() bool {
	return e.Status == LedgerStatusPaid
}

// IsCancel returns true for reversal rows
func (e *LedgerEntry) IsCancel() bool {
	return e.Status == LedgerStatusCancel
}

// HasNextSchedule reports whether the entry points at a provider-side schedule
func (e *LedgerEntry) HasNextSchedule() bool {
	return e.NextScheduleID != "" && !e.NextScheduleAt.IsZero()
}

// CoversInstant reports whether t falls before the end of the entry's period
func (e *LedgerEntry) CoversInstant(t time.Time) bool {
	return e.EndAt.After(t)
}

// Reverse builds the Cancel row for a Paid row. The amount is negated and
// every period and schedule field is copied unchanged.
func Reverse(paid *LedgerEntry) *LedgerEntry {
	return &LedgerEntry{
		TransactionKey: paid.TransactionKey,
		Amount:         -paid.Amount,
		Status:         LedgerStatusCancel,
		StartAt:        paid.StartAt,
		EndAt:          paid.EndAt,
		EndGraceAt:     paid.EndGraceAt,
		NextScheduleAt: paid.NextScheduleAt,
		NextScheduleID: paid.NextScheduleID,
	}
}

// NetAmount sums the amounts of entries
func NetAmount(entries []*LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
