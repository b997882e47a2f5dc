package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/pagegrab/internal/fetcher"
	"github.com/nao1215/pagegrab/internal/model"
)

// FailureRecord is a stored failed fetch.
type FailureRecord struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Kind       string    `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	RetryAfter string    `json:"retry_after,omitempty"`
	Message    string    `json:"message"`
	BatchID    string    `json:"batch_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewFailureRecord describes err as a failure of url. Fetcher errors
// contribute their kind, status code and Retry-After value; any other
// error is stored with kind "unknown".
func NewFailureRecord(url, batchID string, err error) *FailureRecord {
	rec := &FailureRecord{
		URL:     url,
		Kind:    fetcher.KindUnknown.String(),
		BatchID: batchID,
	}
	if err != nil {
		rec.Message = err.Error()
	}

	var fe *fetcher.Error
	if errors.As(err, &fe) {
		rec.Kind = fe.Kind.String()
		rec.StatusCode = fe.StatusCode
		rec.RetryAfter = fe.RetryAfter
	}
	return rec
}

// RecordFailure stores a failed fetch.
func (ddb *DocumentDB) RecordFailure(ctx context.Context, rec *FailureRecord) error {
	query := `
	INSERT INTO fetch_failures (url, kind, status_code, retry_after, message, batch_id)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := ddb.db.ExecContext(ctx, query,
		rec.URL,
		rec.Kind,
		rec.StatusCode,
		rec.RetryAfter,
		rec.Message,
		rec.BatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	return nil
}

// ListFailures returns stored failures, newest first. An empty url lists
// failures for every URL.
func (ddb *DocumentDB) ListFailures(ctx context.Context, url string) ([]FailureRecord, error) {
	query := `
	SELECT id, url, kind, status_code, retry_after, message, batch_id, timestamp
	FROM fetch_failures
	WHERE 1=1
	`
	args := make([]any, 0, 1)

	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}

	query += " ORDER BY id DESC"

	rows, err := ddb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var results []FailureRecord
	for rows.Next() {
		var (
			rec        FailureRecord
			retryAfter sql.NullString
			message    sql.NullString
			batchID    sql.NullString
			timestamp  string
		)

		err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.Kind,
			&rec.StatusCode,
			&retryAfter,
			&message,
			&batchID,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}

		rec.RetryAfter = retryAfter.String
		rec.Message = message.String
		rec.BatchID = batchID.String
		rec.Timestamp = parseTimestamp(timestamp)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// SaveBatch stores a batch summary. Saving the same batch ID again
// replaces the earlier row.
func (ddb *DocumentDB) SaveBatch(ctx context.Context, summary *model.BatchSummary) error {
	kindsJSON, err := json.Marshal(summary.FailuresByKind)
	if err != nil {
		return fmt.Errorf("failed to serialize failure kinds: %w", err)
	}

	query := `
	INSERT INTO batches (batch_id, requested, succeeded, failed, total_length, failures_by_kind, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(batch_id) DO UPDATE SET
		requested = excluded.requested,
		succeeded = excluded.succeeded,
		failed = excluded.failed,
		total_length = excluded.total_length,
		failures_by_kind = excluded.failures_by_kind,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at
	`

	_, err = ddb.db.ExecContext(ctx, query,
		summary.BatchID,
		summary.Requested,
		summary.Succeeded,
		summary.Failed,
		summary.TotalLength,
		string(kindsJSON),
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}

	return nil
}

const batchColumns = `batch_id, requested, succeeded, failed, total_length, failures_by_kind, started_at, finished_at`

func scanBatch(row rowScanner) (*model.BatchSummary, error) {
	var (
		summary    model.BatchSummary
		kindsJSON  sql.NullString
		startedAt  string
		finishedAt string
	)

	err := row.Scan(
		&summary.BatchID,
		&summary.Requested,
		&summary.Succeeded,
		&summary.Failed,
		&summary.TotalLength,
		&kindsJSON,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	summary.StartedAt = parseTimestamp(startedAt)
	summary.FinishedAt = parseTimestamp(finishedAt)
	summary.FailuresByKind = make(map[string]int)
	if kindsJSON.Valid && kindsJSON.String != "" && kindsJSON.String != "null" {
		if err := json.Unmarshal([]byte(kindsJSON.String), &summary.FailuresByKind); err != nil {
			summary.FailuresByKind = make(map[string]int)
		}
	}

	return &summary, nil
}

// GetBatch retrieves a batch summary by ID.
// It returns nil, nil when the batch is unknown.
func (ddb *DocumentDB) GetBatch(ctx context.Context, batchID string) (*model.BatchSummary, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE batch_id = ?`

	summary, err := scanBatch(ddb.db.QueryRowContext(ctx, query, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return summary, nil
}

// ListBatches returns batch summaries, most recently started first.
// A limit of zero or less returns every batch.
func (ddb *DocumentDB) ListBatches(ctx context.Context, limit int) ([]*model.BatchSummary, error) {
	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY started_at DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ddb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var results []*model.BatchSummary
	for rows.Next() {
		summary, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		results = append(results, summary)
	}

	return results, rows.Err()
}
