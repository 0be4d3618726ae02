package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

// ErrBatchNotFound is returned when a batch id has no row
var ErrBatchNotFound = errors.New("batch not found")

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS momentum;

CREATE TABLE IF NOT EXISTS momentum.batches (
	batch_id      UUID PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL,
	total         INT NOT NULL,
	succeeded     INT NOT NULL,
	failed        INT NOT NULL,
	success_rate  DOUBLE PRECISION NOT NULL,
	config_hash   TEXT NOT NULL DEFAULT '',
	summary       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS momentum.outcomes (
	batch_id      UUID NOT NULL REFERENCES momentum.batches(batch_id) ON DELETE CASCADE,
	task_index    INT NOT NULL,
	label         TEXT NOT NULL,
	spec          TEXT NOT NULL,
	success       BOOLEAN NOT NULL,
	selection     JSONB,
	error_kind    TEXT,
	error_detail  TEXT,
	completed_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (batch_id, task_index)
);

CREATE INDEX IF NOT EXISTS idx_batches_started_at ON momentum.batches (started_at DESC);
`

// BatchRecord is one row of momentum.batches
type BatchRecord struct {
	BatchID     string    `json:"batch_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"success_rate"`
	ConfigHash  string    `json:"config_hash,omitempty"`
}

// Repository handles batch persistence
// ⭐ SSOT: 배치 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new batch repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the momentum schema when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveBatch writes the summary and every outcome in one transaction
func (r *Repository) SaveBatch(ctx context.Context, summary contracts.BatchSummary, outcomes []contracts.BacktestOutcome, configHash string) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO momentum.batches (
			batch_id, started_at, completed_at, total, succeeded, failed,
			success_rate, config_hash, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		summary.BatchID, summary.StartedAt, summary.CompletedAt, summary.Total,
		summary.Succeeded, summary.Failed, summary.SuccessRate, configHash, summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", summary.BatchID, err)
	}

	query := `
		INSERT INTO momentum.outcomes (
			batch_id, task_index, label, spec, success, selection,
			error_kind, error_detail, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, o := range outcomes {
		row, err := toOutcomeRow(o)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query,
			summary.BatchID, o.TaskIndex, o.Label, o.Spec, o.Success, row.selection,
			row.errorKind, row.errorDetail, o.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outcome %d: %w", o.TaskIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListBatches returns the most recent batches first
func (r *Repository) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT batch_id::text, started_at, completed_at, total, succeeded, failed,
		       success_rate, config_hash
		FROM momentum.batches
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	records := make([]BatchRecord, 0)
	for rows.Next() {
		var rec BatchRecord
		if err := rows.Scan(
			&rec.BatchID, &rec.StartedAt, &rec.CompletedAt, &rec.Total, &rec.Succeeded,
			&rec.Failed, &rec.SuccessRate, &rec.ConfigHash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetSummary loads the stored summary of one batch
func (r *Repository) GetSummary(ctx context.Context, batchID string) (*contracts.BatchSummary, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT summary FROM momentum.batches WHERE batch_id = $1`, batchID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	var summary contracts.BatchSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}

type outcomeRow struct {
	selection   []byte
	errorKind   *string
	errorDetail *string
}

// toOutcomeRow maps the success/failure halves of an outcome onto nullable columns
func toOutcomeRow(o contracts.BacktestOutcome) (outcomeRow, error) {
	if o.Success {
		sel, err := json.Marshal(o.Selection)
		if err != nil {
			return outcomeRow{}, fmt.Errorf("marshal selection %d: %w", o.TaskIndex, err)
		}
		return outcomeRow{selection: sel}, nil
	}

	kind := string(o.ErrorKind)
	detail := o.ErrorDetail
	return outcomeRow{errorKind: &kind, errorDetail: &detail}, nil
}
