package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/pgvector/pgvector-go"
)

// nullVector scans a nullable pgvector column.
type nullVector struct {
	Vector pgvector.Vector
	Valid  bool
}

func (v *nullVector) Scan(src any) error {
	if src == nil {
		v.Valid = false
		return nil
	}
	if err := v.Vector.Scan(src); err != nil {
		return err
	}
	v.Valid = true
	return nil
}

// RosterRepository provides PostgreSQL-backed roster storage.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a roster repository over the pool.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// ListRecords returns all roster records in id order.
func (r *RosterRepository) ListRecords(ctx context.Context) ([]roster.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, embedding
		FROM students
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var records []roster.Record
	for rows.Next() {
		var rec roster.Record
		var vec nullVector
		if err := rows.Scan(&rec.ID, &rec.DisplayName, &vec); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		if vec.Valid {
			rec.Embedding = vec.Vector.Slice()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return records, nil
}

// Get returns one roster record, or nil if the id is not enrolled.
func (r *RosterRepository) Get(ctx context.Context, id string) (*roster.Record, error) {
	var rec roster.Record
	var vec nullVector
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, embedding
		FROM students
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.DisplayName, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	if vec.Valid {
		rec.Embedding = vec.Vector.Slice()
	}
	return &rec, nil
}

// Upsert inserts or updates a roster record. A nil embedding clears the
// stored vector so a bad enrollment can be retaken.
func (r *RosterRepository) Upsert(ctx context.Context, rec roster.Record, model string) error {
	var emb driver.Valuer
	if len(rec.Embedding) > 0 {
		emb = pgvector.NewVector(rec.Embedding)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (id, display_name, embedding, model)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    embedding    = EXCLUDED.embedding,
		    model        = EXCLUDED.model,
		    updated_at   = NOW()
	`, rec.ID, rec.DisplayName, emb, model)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", rec.ID, err)
	}
	return nil
}

// Count returns the number of enrolled identities.
func (r *RosterRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
