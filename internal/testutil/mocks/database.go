// Package mocks provides shared test doubles for the domain ports.
package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
)

// InMemoryLedger is a ports.LedgerRepository backed by a slice.
// WithKeyLock holds a per-key mutex and discards writes when fn fails.
type InMemoryLedger struct {
	now func() time.Time

	// Errors to inject
	InsertErr error
	LatestErr error
	FindErr   error
	ListErr   error
	LockErr   error

	entries  []*domain.LedgerEntry
	keyLocks map[string]*sync.Mutex
	nextID   int64

	InsertCalls int
	mu          sync.Mutex
}

// NewInMemoryLedger creates an empty ledger stamping rows with now
func NewInMemoryLedger(now func() time.Time) *InMemoryLedger {
	if now == nil {
		now = time.Now
	}
	return &InMemoryLedger{now: now, keyLocks: make(map[string]*sync.Mutex)}
}

// Seed appends entries without going through Insert
func (l *InMemoryLedger) Seed(entries ...*domain.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		l.appendLocked(e)
	}
}

// Entries returns a copy of every row for transactionKey, oldest first
func (l *InMemoryLedger) Entries(transactionKey string) []domain.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range l.entries {
		if e.TransactionKey == transactionKey {
			out = append(out, *e)
		}
	}
	return out
}

// Insert implements ports.LedgerQuerier
func (l *InMemoryLedger) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.InsertCalls++
	if l.InsertErr != nil {
		return l.InsertErr
	}
	l.appendLocked(entry)
	return nil
}

// Latest implements ports.LedgerQuerier
func (l *InMemoryLedger) Latest(ctx context.Context, transactionKey string) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.LatestErr != nil {
		return nil, l.LatestErr
	}
	rows := l.byKeyLocked(transactionKey)
	if len(rows) == 0 {
		return nil, domain.ErrNoRows
	}
	latest := *rows[len(rows)-1]
	return &latest, nil
}

// FindPaidCovering implements ports.LedgerQuerier
func (l *InMemoryLedger) FindPaidCovering(ctx context.Context, transactionKey string, at time.Time) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FindErr != nil {
		return nil, l.FindErr
	}
	rows := l.byKeyLocked(transactionKey)
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].IsPaid() && rows[i].CoversInstant(at) {
			found := *rows[i]
			return &found, nil
		}
	}
	return nil, domain.ErrNoRows
}

// ListByTransactionKey implements ports.LedgerQuerier
func (l *InMemoryLedger) ListByTransactionKey(ctx context.Context, transactionKey string) ([]*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ListErr != nil {
		return nil, l.ListErr
	}
	rows := l.byKeyLocked(transactionKey)
	if len(rows) == 0 {
		return nil, domain.ErrNoRows
	}
	out := make([]*domain.LedgerEntry, len(rows))
	for i, r := range rows {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// WithKeyLock implements ports.LedgerRepository
func (l *InMemoryLedger) WithKeyLock(ctx context.Context, transactionKey string, fn func(ctx context.Context, q ports.LedgerQuerier) error) error {
	if l.LockErr != nil {
		return l.LockErr
	}

	l.mu.Lock()
	keyLock, ok := l.keyLocks[transactionKey]
	if !ok {
		keyLock = &sync.Mutex{}
		l.keyLocks[transactionKey] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
	defer keyLock.Unlock()

	tx := &ledgerTx{InMemoryLedger: l}
	if err := fn(ctx, tx); err != nil {
		l.rollback(tx.inserted)
		return err
	}
	return nil
}

// ledgerTx records rows inserted inside WithKeyLock so they can be discarded
type ledgerTx struct {
	*InMemoryLedger
	inserted []int64
}

func (tx *ledgerTx) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := tx.InMemoryLedger.Insert(ctx, entry); err != nil {
		return err
	}
	tx.inserted = append(tx.inserted, entry.ID)
	return nil
}

func (l *InMemoryLedger) rollback(ids []int64) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

func (l *InMemoryLedger) appendLocked(entry *domain.LedgerEntry) {
	l.nextID++
	entry.ID = l.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	stored := *entry
	l.entries = append(l.entries, &stored)
}

func (l *InMemoryLedger) byKeyLocked(transactionKey string) []*domain.LedgerEntry {
	var rows []*domain.LedgerEntry
	for _, e := range l.entries {
		if e.TransactionKey == transactionKey {
			rows = append(rows, e)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows
}
