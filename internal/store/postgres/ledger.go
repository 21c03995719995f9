package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerRepository is the PostgreSQL attendance sink.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a ledger repository over the pool.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// LoadEntries returns all entries for a date key in recognition order.
func (r *LedgerRepository) LoadEntries(ctx context.Context, dateKey string) ([]ledger.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT student_id, display_name, marked_at
		FROM attendance
		WHERE day = $1
		ORDER BY id
	`, dateKey)
	if err != nil {
		return nil, fmt.Errorf("query attendance for %s: %w", dateKey, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.DisplayName, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attendance entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance entries: %w", err)
	}
	return entries, nil
}

// AppendEntries inserts entries for a date key. The unique constraint on
// (day, student_id) makes retried appends idempotent.
func (r *LedgerRepository) AppendEntries(ctx context.Context, dateKey string, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (day, student_id, display_name, marked_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (day, student_id) DO NOTHING
		`, dateKey, e.ID, e.DisplayName, e.Timestamp)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert attendance entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance entries: %w", err)
	}
	return nil
}

// CountForDay returns the number of marked identities for a date key.
func (r *LedgerRepository) CountForDay(ctx context.Context, dateKey string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance WHERE day = $1", dateKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance for %s: %w", dateKey, err)
	}
	return count, nil
}
