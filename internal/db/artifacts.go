package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveArtifact stores a JSON artifact for a pipeline run, replacing any earlier version of the step
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO artifacts (run_id, step, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = $3, content = $4, created_at = NOW()`,
		runID, step, category, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and step, or nil if absent
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// ListArtifacts lists the artifacts of a run in creation order
func (db *DB) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]ArtifactSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT step, COALESCE(category, ''), created_at FROM artifacts WHERE run_id = $1 ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []ArtifactSummary
	for rows.Next() {
		var a ArtifactSummary
		if err := rows.Scan(&a.Step, &a.Category, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// SaveCheckpoint appends a copy of the state document
func (db *DB) SaveCheckpoint(ctx context.Context, runID uuid.UUID, stage string, iteration int, state []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO checkpoints (run_id, stage, iteration, state) VALUES ($1, $2, $3, $4)`,
		runID, stage, iteration, state,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LatestCheckpoint returns the most recent checkpoint of a run, or nil if none exists
func (db *DB) LatestCheckpoint(ctx context.Context, runID uuid.UUID) (*Checkpoint, error) {
	var cp Checkpoint
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, stage, iteration, state, created_at
		 FROM checkpoints WHERE run_id = $1 ORDER BY id DESC LIMIT 1`,
		runID,
	).Scan(&cp.ID, &cp.RunID, &cp.Stage, &cp.Iteration, &cp.State, &cp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return &cp, nil
}
