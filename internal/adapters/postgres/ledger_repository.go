package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	"go.uber.org/zap"
)

const ledgerColumns = `id, transaction_key, amount, status, start_at, end_at, end_grace_at,
	next_schedule_at, next_schedule_id, created_at`

const (
	insertEntrySQL = `INSERT INTO payment (
	transaction_key, amount, status, start_at, end_at, end_grace_at, next_schedule_at, next_schedule_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`

	latestEntrySQL = `SELECT ` + ledgerColumns + `
FROM payment
WHERE transaction_key = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`

	paidCoveringSQL = `SELECT ` + ledgerColumns + `
FROM payment
WHERE transaction_key = $1 AND status = 'Paid' AND end_at > $2
ORDER BY created_at DESC, id DESC
LIMIT 1`

	listEntriesSQL = `SELECT ` + ledgerColumns + `
FROM payment
WHERE transaction_key = $1
ORDER BY created_at ASC, id ASC`

	// Held until the surrounding transaction ends
	lockKeySQL = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

// ledgerQueries implements ports.LedgerQuerier over a pool or a transaction
type ledgerQueries struct {
	db ports.DBTX
}

// LedgerRepository implements ports.LedgerRepository on the append-only payment table
type LedgerRepository struct {
	*ledgerQueries
	pool   ports.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db ports.DB, logger *zap.Logger) *LedgerRepository {
	return &LedgerRepository{
		ledgerQueries: &ledgerQueries{db: db},
		pool:          db,
		logger:        logger,
	}
}

// WithKeyLock serializes all work on one transaction key across processes
func (r *LedgerRepository) WithKeyLock(ctx context.Context, transactionKey string, fn func(ctx context.Context, q ports.LedgerQuerier) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockKeySQL, transactionKey); err != nil {
			return fmt.Errorf("lock transaction key: %w", err)
		}
		r.logger.Debug("Acquired ledger key lock", zap.String("transaction_key", transactionKey))
		return fn(ctx, &ledgerQueries{db: tx})
	})
}

// Insert appends an entry. Rows are never updated afterwards.
func (q *ledgerQueries) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	if !entry.Status.IsValid() {
		return fmt.Errorf("insert ledger entry: invalid status %q", entry.Status)
	}

	err := q.db.QueryRow(ctx, insertEntrySQL,
		entry.TransactionKey,
		entry.Amount,
		string(entry.Status),
		entry.StartAt,
		entry.EndAt,
		entry.EndGraceAt,
		entry.NextScheduleAt,
		entry.NextScheduleID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	return nil
}

// Latest returns the current row for a transaction key
func (q *ledgerQueries) Latest(ctx context.Context, transactionKey string) (*domain.LedgerEntry, error) {
	entry, err := scanEntry(q.db.QueryRow(ctx, latestEntrySQL, transactionKey))
	if err != nil {
		return nil, fmt.Errorf("get latest ledger entry: %w", err)
	}
	return entry, nil
}

// FindPaidCovering returns a Paid row whose period is still running at the given instant
func (q *ledgerQueries) FindPaidCovering(ctx context.Context, transactionKey string, at time.Time) (*domain.LedgerEntry, error) {
	entry, err := scanEntry(q.db.QueryRow(ctx, paidCoveringSQL, transactionKey, at))
	if err != nil {
		return nil, fmt.Errorf("find paid ledger entry: %w", err)
	}
	return entry, nil
}

// ListByTransactionKey returns the full history of a transaction key
func (q *ledgerQueries) ListByTransactionKey(ctx context.Context, transactionKey string) ([]*domain.LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesSQL, transactionKey)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("list ledger entries: %w", domain.ErrNoRows)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry  domain.LedgerEntry
		status string
	)

	err := row.Scan(
		&entry.ID,
		&entry.TransactionKey,
		&entry.Amount,
		&status,
		&entry.StartAt,
		&entry.EndAt,
		&entry.EndGraceAt,
		&entry.NextScheduleAt,
		&entry.NextScheduleID,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoRows
		}
		return nil, err
	}

	entry.Status = domain.LedgerStatus(status)
	entry.StartAt = entry.StartAt.UTC()
	entry.EndAt = entry.EndAt.UTC()
	entry.EndGraceAt = entry.EndGraceAt.UTC()
	entry.NextScheduleAt = entry.NextScheduleAt.UTC()
	entry.CreatedAt = entry.CreatedAt.UTC()

	return &entry, nil
}
