package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/repocompare/internal/types"
)

// mirrorStore is the subset of DB the Mirror writes through.
type mirrorStore interface {
	EnsureRun(ctx context.Context, sessionID, source, target string) (uuid.UUID, error)
	SaveCheckpoint(ctx context.Context, runID uuid.UUID, stage string, iteration int, state []byte) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, outcome string) error
}

// Mirror copies every persisted pipeline state into PostgreSQL.
// The file store stays authoritative; the mirror exists for querying runs after the fact.
type Mirror struct {
	store mirrorStore

	mu        sync.Mutex
	runs      map[string]uuid.UUID
	last      map[string]string
	completed map[string]bool
}

// NewMirror creates a Mirror writing through db.
func NewMirror(db *DB) *Mirror {
	return newMirror(db)
}

func newMirror(store mirrorStore) *Mirror {
	return &Mirror{
		store:     store,
		runs:      make(map[string]uuid.UUID),
		last:      make(map[string]string),
		completed: make(map[string]bool),
	}
}

// Record saves a checkpoint of state and refreshes any stage artifact that changed since the last call.
func (m *Mirror) Record(ctx context.Context, state *types.PipelineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID, err := m.runID(ctx, state)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := m.store.SaveCheckpoint(ctx, runID, string(state.Stage), state.Iteration, doc); err != nil {
		return err
	}

	artifacts := []struct {
		step     string
		category string
		present  bool
		content  any
	}{
		{StepAggregate, CategoryAnalysis, state.Aggregate != nil, state.Aggregate},
		{StepCandidates, CategoryAnalysis, m.hasCandidates(state), candidateSet(state)},
		{StepReviews, CategoryReview, len(state.ReviewResults) > 0, state.ReviewResults},
		{StepFeedback, CategoryFeedback, len(state.History) > 0, state.History},
	}
	for _, a := range artifacts {
		if !a.present {
			continue
		}
		data, err := json.Marshal(a.content)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", a.step, err)
		}
		key := state.SessionID + "/" + a.step
		if m.last[key] == string(data) {
			continue
		}
		if err := m.store.SaveArtifact(ctx, runID, a.step, a.category, json.RawMessage(data)); err != nil {
			return err
		}
		m.last[key] = string(data)
	}

	if state.Completed && !m.completed[state.SessionID] {
		if err := m.store.CompleteRun(ctx, runID, string(state.Outcome)); err != nil {
			return err
		}
		m.completed[state.SessionID] = true
	}
	return nil
}

// hasCandidates reports whether the candidates artifact should be written. Once a set exists
// an emptied one is still recorded so the mirror never keeps a stale list.
func (m *Mirror) hasCandidates(state *types.PipelineState) bool {
	if len(state.CandidateSet) > 0 || state.Stage.AtLeast(types.StageCandidatesGenerated) {
		return true
	}
	_, recorded := m.last[state.SessionID+"/"+StepCandidates]
	return recorded
}

func candidateSet(state *types.PipelineState) []types.CandidateItem {
	if state.CandidateSet == nil {
		return []types.CandidateItem{}
	}
	return state.CandidateSet
}

// Forget drops cached ids for sessionID so the next Record starts over after a reset.
func (m *Mirror) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, sessionID)
	delete(m.completed, sessionID)
	for _, step := range []string{StepAggregate, StepCandidates, StepReviews, StepFeedback} {
		delete(m.last, sessionID+"/"+step)
	}
}

func (m *Mirror) runID(ctx context.Context, state *types.PipelineState) (uuid.UUID, error) {
	if id, ok := m.runs[state.SessionID]; ok {
		return id, nil
	}
	id, err := m.store.EnsureRun(ctx, state.SessionID, state.Inputs.Source, state.Inputs.Target)
	if err != nil {
		return uuid.Nil, err
	}
	m.runs[state.SessionID] = id
	return id, nil
}
