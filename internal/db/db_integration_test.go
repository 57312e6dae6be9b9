//go:build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/repocompare/internal/types"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	sessionID := "it-" + uuid.New().String()[:8]
	defer func() { _ = db.DeleteRunBySession(ctx, sessionID) }()

	state := types.NewPipelineState(sessionID, 3)
	state.Inputs = types.Inputs{Source: "/src", Target: "/dst"}
	state.Aggregate = &types.AggregateResult{ChunkCount: 1, Summaries: []string{"s"}}
	state.Completed = true
	state.Outcome = types.OutcomeApproved

	m := NewMirror(db)
	if err := m.Record(ctx, state); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	run, err := db.GetRunBySession(ctx, sessionID)
	if err != nil || run == nil {
		t.Fatalf("GetRunBySession = %v, %v", run, err)
	}
	if run.Status != RunStatusCompleted {
		t.Errorf("Status = %s, want %s", run.Status, RunStatusCompleted)
	}

	content, err := db.GetArtifact(ctx, run.ID, StepAggregate)
	if err != nil || content == nil {
		t.Fatalf("GetArtifact = %s, %v", content, err)
	}

	cp, err := db.LatestCheckpoint(ctx, run.ID)
	if err != nil || cp == nil {
		t.Fatalf("LatestCheckpoint = %v, %v", cp, err)
	}
	if cp.Stage != string(types.StageInitialized) {
		t.Errorf("Stage = %s", cp.Stage)
	}

	artifacts, err := db.ListArtifacts(ctx, run.ID)
	if err != nil || len(artifacts) != 1 {
		t.Fatalf("ListArtifacts = %v, %v", artifacts, err)
	}
}
