package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, session_id, source_path, target_path, status, outcome, created_at, updated_at, completed_at`

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	if err := row.Scan(&run.ID, &run.SessionID, &run.SourcePath, &run.TargetPath, &run.Status,
		&run.Outcome, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

// EnsureRun returns the run for sessionID, creating it on first use
func (db *DB) EnsureRun(ctx context.Context, sessionID, source, target string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (session_id, source_path, target_path, status)
		 VALUES ($1, $2, $3, 'running')
		 ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
		sessionID, source, target,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to ensure run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a pipeline run as completed with its feedback outcome
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, outcome string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = 'completed', outcome = $1, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $2`,
		outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRunBySession retrieves a run by session id, or nil if none exists
func (db *DB) GetRunBySession(ctx context.Context, sessionID string) (*Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent pipeline runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRunBySession deletes a run and, via cascade, its artifacts and checkpoints
func (db *DB) DeleteRunBySession(ctx context.Context, sessionID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM pipeline_runs WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
