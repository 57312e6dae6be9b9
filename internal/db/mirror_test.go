package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/repocompare/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedArtifact struct {
	step     string
	category string
	content  []byte
}

// fakeStore records mirror writes in memory
type fakeStore struct {
	runID       uuid.UUID
	ensureCalls int
	checkpoints []string
	artifacts   []savedArtifact
	completed   []string
	ensureErr   error
}

func (f *fakeStore) EnsureRun(_ context.Context, _, _, _ string) (uuid.UUID, error) {
	f.ensureCalls++
	if f.ensureErr != nil {
		return uuid.Nil, f.ensureErr
	}
	return f.runID, nil
}

func (f *fakeStore) SaveCheckpoint(_ context.Context, runID uuid.UUID, stage string, _ int, state []byte) error {
	if runID != f.runID {
		return errors.New("wrong run")
	}
	if !json.Valid(state) {
		return errors.New("invalid state json")
	}
	f.checkpoints = append(f.checkpoints, stage)
	return nil
}

func (f *fakeStore) SaveArtifact(_ context.Context, _ uuid.UUID, step, category string, content any) error {
	data, err := json.Marshal(content)
	if err != nil {
		return err
	}
	f.artifacts = append(f.artifacts, savedArtifact{step: step, category: category, content: data})
	return nil
}

func (f *fakeStore) CompleteRun(_ context.Context, _ uuid.UUID, outcome string) error {
	f.completed = append(f.completed, outcome)
	return nil
}

func TestMirror_RecordsCheckpointsAndChangedArtifacts(t *testing.T) {
	store := &fakeStore{runID: uuid.New()}
	m := newMirror(store)
	ctx := context.Background()

	state := types.NewPipelineState("run-1", 3)
	require.NoError(t, m.Record(ctx, state))
	assert.Equal(t, []string{"initialized"}, store.checkpoints)
	assert.Empty(t, store.artifacts)

	state.Stage = types.StageAnalysisComplete
	state.Aggregate = &types.AggregateResult{ChunkCount: 2}
	require.NoError(t, m.Record(ctx, state))
	require.NoError(t, m.Record(ctx, state))

	assert.Equal(t, 1, store.ensureCalls, "run id is cached")
	assert.Len(t, store.checkpoints, 3)
	require.Len(t, store.artifacts, 1, "unchanged artifacts are not rewritten")
	assert.Equal(t, StepAggregate, store.artifacts[0].step)
	assert.Equal(t, CategoryAnalysis, store.artifacts[0].category)
	assert.Contains(t, string(store.artifacts[0].content), `"chunk_count":2`)

	state.ReviewResults = map[string]types.Verdict{"risk": types.DefaultVerdict("risk", "x")}
	state.Completed = true
	state.Outcome = types.OutcomeApproved
	require.NoError(t, m.Record(ctx, state))
	require.NoError(t, m.Record(ctx, state))

	require.Len(t, store.artifacts, 2)
	assert.Equal(t, StepReviews, store.artifacts[1].step)
	assert.Equal(t, []string{"approved"}, store.completed)
}

func TestMirror_RecordsEmptiedCandidateSet(t *testing.T) {
	store := &fakeStore{runID: uuid.New()}
	m := newMirror(store)
	ctx := context.Background()

	state := types.NewPipelineState("run-1", 3)
	state.Stage = types.StageGeneratingCandidates
	require.NoError(t, m.Record(ctx, state))
	assert.Empty(t, store.artifacts, "no candidates yet")

	state.CandidateSet = []types.CandidateItem{{ID: "retry", Title: "Retry", Priority: 3, Category: "technique", Complexity: 2}}
	require.NoError(t, m.Record(ctx, state))
	require.Len(t, store.artifacts, 1)
	assert.Contains(t, string(store.artifacts[0].content), `"Retry"`)

	state.CandidateSet = nil
	require.NoError(t, m.Record(ctx, state))
	require.Len(t, store.artifacts, 2)
	assert.Equal(t, StepCandidates, store.artifacts[1].step)
	assert.Equal(t, "[]", string(store.artifacts[1].content))

	// A fresh mirror, as after a restart, still records an empty set once candidates were generated.
	fresh := &fakeStore{runID: uuid.New()}
	state.Stage = types.StageCandidatesGenerated
	require.NoError(t, newMirror(fresh).Record(ctx, state))
	require.Len(t, fresh.artifacts, 1)
	assert.Equal(t, "[]", string(fresh.artifacts[0].content))
}

func TestMirror_EnsureRunFailure(t *testing.T) {
	store := &fakeStore{ensureErr: errors.New("connection refused")}
	m := newMirror(store)

	err := m.Record(context.Background(), types.NewPipelineState("run-1", 3))
	require.Error(t, err)
	assert.Empty(t, store.checkpoints)
}

func TestMirror_Forget(t *testing.T) {
	store := &fakeStore{runID: uuid.New()}
	m := newMirror(store)
	ctx := context.Background()

	state := types.NewPipelineState("run-1", 3)
	require.NoError(t, m.Record(ctx, state))
	m.Forget("run-1")
	require.NoError(t, m.Record(ctx, state))
	assert.Equal(t, 2, store.ensureCalls)
}

func TestRunStatusConstants(t *testing.T) {
	run := Run{SessionID: "run-1", Status: RunStatusRunning}
	assert.Equal(t, "running", run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.NotEmpty(t, schemaSQL)
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS checkpoints")
}
