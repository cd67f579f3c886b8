package domain

import "time"

// SubscriptionState is derived from the latest ledger row and never stored
type SubscriptionState string

const (
	SubscriptionStateNone      SubscriptionState = "None"
	SubscriptionStateActive    SubscriptionState = "Active"
	SubscriptionStateCancelled SubscriptionState = "Cancelled"
)

// Fixed subscription terms
const (
	BillingPeriod = 30 * 24 * time.Hour
	Currency      = "KRW"
)

// DeriveState maps the latest ledger row of a transaction key to a state.
// A nil row means nothing was ever recorded.
func DeriveState(latest *LedgerEntry) SubscriptionState {
	if latest == nil {
		return SubscriptionStateNone
	}
	if latest.IsCancel() {
		return SubscriptionStateCancelled
	}
	return SubscriptionStateActive
}

// Subscription is a read model over the ledger rows of one transaction key
type Subscription struct {
	Latest         *LedgerEntry      `json:"latest"`
	TransactionKey string            `json:"transaction_key"`
	State          SubscriptionState `json:"state"`
	NetAmount      int64             `json:"net_amount"`
}

// NewSubscription builds the read model from rows ordered oldest first
func NewSubscription(transactionKey string, entries []*LedgerEntry) *Subscription {
	sub := &Subscription{
		TransactionKey: transactionKey,
		State:          SubscriptionStateNone,
		NetAmount:      NetAmount(entries),
	}
	if len(entries) > 0 {
		sub.Latest = entries[len(entries)-1]
		sub.State = DeriveState(sub.Latest)
	}
	return sub
}

// InGracePeriod returns true when t is past the period end but still inside
// the grace window of an active subscription
func (s *Subscription) InGracePeriod(t time.Time) bool {
	if s.State != SubscriptionStateActive || s.Latest == nil {
		return false
	}
	return !t.Before(s.Latest.EndAt) && !t.After(s.Latest.EndGraceAt)
}
