package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/prepaid-recharge/internal/job"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJobNotFound is returned when no job record exists for an id.
var ErrJobNotFound = errors.New("job not found")

// JobStore persists balance adjustment job records in Postgres so terminal
// statuses remain queryable after execution.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a store backed by the given pool.
func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Migrate ensures the job table exists.
func (s *JobStore) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS balance_adjustment_jobs (
			id UUID PRIMARY KEY,
			target_kind TEXT NOT NULL,
			target_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency_code TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'IDLE',
			tag TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_balance_adjustment_jobs_status
			ON balance_adjustment_jobs (status, created_at);
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate job table: %w", err)
	}
	return nil
}

// Create inserts a new job record.
func (s *JobStore) Create(ctx context.Context, rec job.Record) error {
	const q = `
		INSERT INTO balance_adjustment_jobs
			(id, target_kind, target_id, amount, currency_code, status, tag)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.pool.Exec(ctx, q,
		rec.ID, rec.TargetKind, rec.TargetID, rec.Amount, rec.CurrencyCode, rec.Status, rec.Tag,
	); err != nil {
		return fmt.Errorf("insert job %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateStatus moves a job record to a new status.
func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status, errMessage string) error {
	const q = `
		UPDATE balance_adjustment_jobs
		SET status = $1, error = $2, updated_at = NOW()
		WHERE id = $3
	`
	tag, err := s.pool.Exec(ctx, q, status, errMessage, id)
	if err != nil {
		return fmt.Errorf("update job %s status: %w", id, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update job %s status affected %d rows", id, tag.RowsAffected())
	}
	return nil
}

// Get loads one job record.
func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (job.Record, error) {
	const q = `
		SELECT id, target_kind, target_id, amount, currency_code, status, tag, error, created_at, updated_at
		FROM balance_adjustment_jobs
		WHERE id = $1
	`
	var rec job.Record
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.TargetKind, &rec.TargetID, &rec.Amount, &rec.CurrencyCode,
		&rec.Status, &rec.Tag, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Record{}, ErrJobNotFound
		}
		return job.Record{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec, nil
}

// ListByStatus returns the most recent records in a given status.
func (s *JobStore) ListByStatus(ctx context.Context, status string, limit int32) ([]job.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	const q = `
		SELECT id, target_kind, target_id, amount, currency_code, status, tag, error, created_at, updated_at
		FROM balance_adjustment_jobs
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []job.Record
	for rows.Next() {
		var rec job.Record
		if err := rows.Scan(
			&rec.ID, &rec.TargetKind, &rec.TargetID, &rec.Amount, &rec.CurrencyCode,
			&rec.Status, &rec.Tag, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job records: %w", err)
	}
	return out, nil
}
