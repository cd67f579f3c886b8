package ports

import (
	"context"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
)

// LedgerQuerier is the set of ledger operations available inside a key lock.
// Reads that match nothing return domain.ErrNoRows.
type LedgerQuerier interface {
	// Insert appends entry and fills in its ID and CreatedAt
	Insert(ctx context.Context, entry *domain.LedgerEntry) error

	// Latest returns the most recently created row for transactionKey
	Latest(ctx context.Context, transactionKey string) (*domain.LedgerEntry, error)

	// FindPaidCovering returns a Paid row for transactionKey whose period
	// has not ended at the given instant
	FindPaidCovering(ctx context.Context, transactionKey string, at time.Time) (*domain.LedgerEntry, error)

	// ListByTransactionKey returns every row for transactionKey, oldest first
	ListByTransactionKey(ctx context.Context, transactionKey string) ([]*domain.LedgerEntry, error)
}

// LedgerRepository persists the append-only payment ledger
type LedgerRepository interface {
	LedgerQuerier

	// WithKeyLock runs fn in a transaction that holds an exclusive lock on
	// transactionKey. Writes made through q commit only if fn returns nil.
	WithKeyLock(ctx context.Context, transactionKey string, fn func(ctx context.Context, q LedgerQuerier) error) error
}
