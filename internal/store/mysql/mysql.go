// Package mysql provides an attendance ledger sink backed by MySQL or
// MariaDB, for deployments whose tabular store already lives there. The
// roster stays in PostgreSQL; only the attendance table is mirrored.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerStore is a MySQL-backed ledger.Store.
type LedgerStore struct {
	db *sql.DB
}

// Open connects to MySQL and ensures the attendance table exists.
func Open(dsn string) (*LedgerStore, error) {
	if dsn == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	// marked_at scans into time.Time, which needs parseTime on the driver.
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &LedgerStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *LedgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing MySQL connection: %w", err)
	}
	return nil
}

func (s *LedgerStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			day          VARCHAR(32)  NOT NULL,
			student_id   VARCHAR(64)  NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			marked_at    DATETIME     NOT NULL,
			UNIQUE KEY uq_day_student (day, student_id),
			KEY idx_day (day)
		)
	`)
	if err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// LoadEntries returns all entries for a date key in recognition order.
func (s *LedgerStore) LoadEntries(ctx context.Context, dateKey string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, display_name, marked_at
		FROM attendance
		WHERE day = ?
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

// AppendEntries inserts entries for a date key. INSERT IGNORE plus the
// unique key makes retried appends idempotent.
func (s *LedgerStore) AppendEntries(ctx context.Context, dateKey string, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO attendance (day, student_id, display_name, marked_at)
			VALUES (?, ?, ?, ?)
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
