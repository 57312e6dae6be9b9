package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/repocompare/internal/db"
)

// fakeRuns implements runReader for testing
type fakeRuns struct {
	runs        []db.Run
	artifacts   []db.ArtifactSummary
	checkpoint  *db.Checkpoint
	listErr     error
	gotLimit    int
	gotArtifact uuid.UUID
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]db.Run, error) {
	f.gotLimit = limit
	return f.runs, f.listErr
}

func (f *fakeRuns) GetRunBySession(_ context.Context, sessionID string) (*db.Run, error) {
	for i := range f.runs {
		if f.runs[i].SessionID == sessionID {
			return &f.runs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRuns) ListArtifacts(_ context.Context, runID uuid.UUID) ([]db.ArtifactSummary, error) {
	f.gotArtifact = runID
	return f.artifacts, nil
}

func (f *fakeRuns) LatestCheckpoint(_ context.Context, _ uuid.UUID) (*db.Checkpoint, error) {
	return f.checkpoint, nil
}

func TestListRuns(t *testing.T) {
	approved := "approved"
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	runID := uuid.New()
	fake := &fakeRuns{
		runs: []db.Run{
			{ID: runID, SessionID: "alpha", SourcePath: "/src", TargetPath: "/dst", Status: "completed", Outcome: &approved, CreatedAt: created},
			{ID: uuid.New(), SessionID: "beta", Status: "running", CreatedAt: created},
		},
		artifacts:  []db.ArtifactSummary{{Step: "aggregate"}, {Step: "candidates"}},
		checkpoint: &db.Checkpoint{Stage: "complete", Iteration: 2, CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, listRuns(context.Background(), &buf, fake, "", 5))
	assert.Equal(t, 5, fake.gotLimit)
	assert.Contains(t, buf.String(), "alpha")
	assert.Contains(t, buf.String(), "approved")
	assert.Contains(t, buf.String(), "beta")

	buf.Reset()
	require.NoError(t, listRuns(context.Background(), &buf, fake, "alpha", 5))
	out := buf.String()
	assert.Equal(t, runID, fake.gotArtifact)
	assert.Contains(t, out, "Source:   /src")
	assert.Contains(t, out, "Artifacts: aggregate, candidates")
	assert.Contains(t, out, "Checkpoint: complete, iteration 2")
}

func TestListRuns_Errors(t *testing.T) {
	fake := &fakeRuns{listErr: errors.New("connection refused")}
	err := listRuns(context.Background(), &bytes.Buffer{}, fake, "", 5)
	assert.EqualError(t, err, "connection refused")

	err = listRuns(context.Background(), &bytes.Buffer{}, &fakeRuns{}, "gone", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mirrored run")

	var buf bytes.Buffer
	require.NoError(t, listRuns(context.Background(), &buf, &fakeRuns{}, "", 5))
	assert.Contains(t, buf.String(), "No mirrored runs.")
}
