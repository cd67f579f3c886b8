package billing

import (
	"fmt"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
)

// EventStatus is the status field of a provider webhook
type EventStatus string

const (
	EventStatusPaid      EventStatus = "Paid"
	EventStatusCancelled EventStatus = "Cancelled"
)

// IsValid reports whether s is a status the handler understands
func (s EventStatus) IsValid() bool {
	return s == EventStatusPaid || s == EventStatusCancelled
}

// Event is one provider webhook delivery
type Event struct {
	PaymentID string
	Status    EventStatus
}

// Outcome describes what an event did to the ledger
type Outcome string

const (
	// OutcomeRecorded means a new ledger row was appended
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicate means the event was already applied and nothing changed
	OutcomeDuplicate Outcome = "duplicate"
)

// Stages at which provider schedule reconciliation can fail
const (
	StageScheduleCreate = "schedule_create"
	StagePaymentLookup  = "payment_lookup"
	StageScheduleLookup = "schedule_lookup"
	StageScheduleCancel = "schedule_cancel"
)

// ReconciliationWarning reports a provider schedule that may not match the
// ledger after the ledger write already committed
type ReconciliationWarning struct {
	Err        error
	Stage      string
	ScheduleID string
}

func (w ReconciliationWarning) Error() string {
	if w.Err == nil {
		return fmt.Sprintf("%s: schedule %s", w.Stage, w.ScheduleID)
	}
	return fmt.Sprintf("%s: schedule %s: %v", w.Stage, w.ScheduleID, w.Err)
}

// EventResult is the successful outcome of HandleEvent. Warnings never change
// the response to the webhook sender; they are for logs and alerts.
type EventResult struct {
	Entry    *domain.LedgerEntry
	Event    Event
	Outcome  Outcome
	Warnings []ReconciliationWarning
}

// NeedsAttention reports a Paid event whose renewal was not scheduled.
// The subscription will silently stop renewing unless someone intervenes.
func (r *EventResult) NeedsAttention() bool {
	if r.Event.Status != EventStatusPaid {
		return false
	}
	for _, w := range r.Warnings {
		if w.Stage == StageScheduleCreate {
			return true
		}
	}
	return false
}

func (r *EventResult) warn(stage, scheduleID string, err error) {
	r.Warnings = append(r.Warnings, ReconciliationWarning{Stage: stage, ScheduleID: scheduleID, Err: err})
}
