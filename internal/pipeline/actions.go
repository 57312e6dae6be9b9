package pipeline

import (
	"context"
	"reflect"

	"github.com/jonathan/repocompare/internal/types"
)

// Refine implements feedback.Actions. It regenerates candidates from the current set plus
// feedback and reviews the result.
func (o *Orchestrator) Refine(ctx context.Context, state *types.PipelineState, feedback []string) error {
	o.pc.Logger.Printf("[PIPELINE] Refining %d candidates with %d feedback items", len(state.CandidateSet), len(feedback))
	items, degraded, err := o.generator.Refine(ctx, state.Aggregate, state.CandidateSet, state.ReviewResults, feedback)
	if err != nil {
		return err
	}
	if degraded {
		o.pc.Printer.Warn("refinement failed; keeping the current candidates")
	}
	o.setCandidates(ctx, state, items)
	return o.reviewCandidates(ctx, state)
}

// ChangeFocus implements feedback.Actions. New focus areas discard the chunk ledger and the
// analysis runs again; replaying the same areas after an interruption resumes the ledger instead.
func (o *Orchestrator) ChangeFocus(ctx context.Context, state *types.PipelineState, areas []string) error {
	if !reflect.DeepEqual(areas, state.FocusAreas) {
		o.pc.Logger.Printf("[PIPELINE] Focus areas %v -> %v, restarting analysis", state.FocusAreas, areas)
		state.FocusAreas = areas
		state.ResetAnalysis()
		o.persist(ctx, state)
	}
	if err := o.runAnalysis(ctx, state); err != nil {
		return err
	}
	return o.produceCandidates(ctx, state)
}
