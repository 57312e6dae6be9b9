package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonathan/repocompare/internal/chunking"
	"github.com/jonathan/repocompare/internal/config"
	"github.com/jonathan/repocompare/internal/ingestion"
	"github.com/jonathan/repocompare/internal/merge"
	"github.com/jonathan/repocompare/internal/review"
	"github.com/jonathan/repocompare/internal/types"
)

// Keys in PipelineState.Meta that pin chunking for the lifetime of a session.
const (
	metaChunkSize = "chunk_size"
	metaSplitMode = "split_mode"
	metaSourceSHA = "source_sha256"
	metaTargetSHA = "target_sha256"
)

func (o *Orchestrator) processInputs(ctx context.Context, state *types.PipelineState) (bool, error) {
	src, tgt, err := o.inputs(state)
	if err != nil {
		return false, err
	}
	o.pc.Printer.Info("source: %s (%d files, %d bytes)", state.Inputs.Source, src.Metadata.Files, src.Metadata.Bytes)
	o.pc.Printer.Info("target: %s (%d files, %d bytes)", state.Inputs.Target, tgt.Metadata.Files, tgt.Metadata.Bytes)

	if state.Meta == nil {
		state.Meta = make(map[string]string)
	}
	state.Meta[metaSourceSHA] = src.Metadata.Hash
	state.Meta[metaTargetSHA] = tgt.Metadata.Hash
	return false, o.advance(ctx, state, types.StageInputsProcessed)
}

func (o *Orchestrator) analyze(ctx context.Context, state *types.PipelineState) (bool, error) {
	if err := o.advance(ctx, state, types.StageAnalyzing); err != nil {
		return false, err
	}
	if err := o.runAnalysis(ctx, state); err != nil {
		return false, err
	}
	if o.pc.Config.Verbose {
		o.pc.Printer.PrintAggregate(state.Aggregate)
	}
	return false, o.advance(ctx, state, types.StageAnalysisComplete)
}

func (o *Orchestrator) generateCandidates(ctx context.Context, state *types.PipelineState) (bool, error) {
	if err := o.advance(ctx, state, types.StageGeneratingCandidates); err != nil {
		return false, err
	}
	switch {
	case len(state.CandidateSet) == 0:
		if err := o.produceCandidates(ctx, state); err != nil {
			return false, err
		}
	case state.ReviewResults == nil:
		o.pc.Printer.Info("reviewing %d saved candidates", len(state.CandidateSet))
		if err := o.reviewCandidates(ctx, state); err != nil {
			return false, err
		}
	default:
		o.pc.Logger.Printf("[PIPELINE] Candidates and verdicts already saved; not regenerating")
	}
	return false, o.advance(ctx, state, types.StageCandidatesGenerated)
}

func (o *Orchestrator) collectFeedback(ctx context.Context, state *types.PipelineState) (bool, error) {
	if err := o.controller.ResumePending(ctx, state, o); err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, err
	}

	outcome, err := o.controller.Run(ctx, state, o)
	if err != nil {
		return false, err
	}

	switch outcome {
	case types.OutcomeInterrupted:
		o.pc.Printer.Warn("Interrupted at iteration %d; run again to resume", state.Iteration)
		return true, nil
	case types.OutcomeSkipped:
		o.pc.Printer.Warn("Skipped; the next run finalizes the current candidates")
		return true, o.advance(ctx, state, types.StageFeedbackApplied)
	case types.OutcomeExhausted:
		o.pc.Printer.Warn("Iteration budget of %d spent; keeping the current candidates", state.MaxIterations)
	}
	return false, o.advance(ctx, state, types.StageFeedbackApplied)
}

func (o *Orchestrator) finalize(ctx context.Context, state *types.PipelineState) (bool, error) {
	state.Completed = true
	if err := o.advance(ctx, state, types.StageComplete); err != nil {
		return false, err
	}
	o.pc.Logger.Printf("[PIPELINE] Session %s complete after %d iterations (outcome: %s)", state.SessionID, state.Iteration, state.Outcome)
	o.pc.Printer.PrintCandidates(state.CandidateSet)
	o.pc.Printer.Success("Session %s complete", state.SessionID)
	return true, nil
}

// runAnalysis chunks both inputs, processes every pending chunk pair and merges all results.
func (o *Orchestrator) runAnalysis(ctx context.Context, state *types.PipelineState) error {
	pairs, err := o.pairs(state)
	if err != nil {
		return err
	}
	o.pc.Printer.Info("%d chunk pairs (%d already done)", len(pairs), countDone(state, pairs))

	o.processor.FocusAreas = state.FocusAreas
	if err := o.processor.ProcessAll(ctx, state, pairs, func() { o.persist(ctx, state) }); err != nil {
		return err
	}

	results, ok := state.DoneResults(len(pairs))
	if !ok {
		return fmt.Errorf("chunk ledger is incomplete after analysis")
	}
	agg := merge.Merge(results)
	state.Aggregate = &agg
	o.persist(ctx, state)

	if _, degraded := state.LedgerCounts(); degraded > 0 {
		o.pc.Printer.Warn("%d of %d chunks fell back to an empty result", degraded, len(pairs))
	}
	o.pc.Printer.Info("merged %d techniques, %d gaps, %d risks", len(agg.Techniques), len(agg.Gaps), len(agg.Risks))
	return nil
}

// produceCandidates generates a fresh candidate set from the aggregate and reviews it.
func (o *Orchestrator) produceCandidates(ctx context.Context, state *types.PipelineState) error {
	if state.Aggregate == nil {
		return fmt.Errorf("no aggregate result to generate candidates from")
	}
	items, degraded, err := o.generator.Generate(ctx, state.Aggregate, state.FocusAreas)
	if err != nil {
		return err
	}
	if degraded {
		o.pc.Printer.Warn("candidate generation failed; derived %d candidates from the top findings", len(items))
	}
	o.setCandidates(ctx, state, items)
	return o.reviewCandidates(ctx, state)
}

func (o *Orchestrator) setCandidates(ctx context.Context, state *types.PipelineState, items []types.CandidateItem) {
	state.CandidateSet = items
	state.ReviewResults = nil
	if o.pc.Files != nil {
		if err := o.pc.Files.WriteCandidateFiles(state.SessionID, items); err != nil {
			o.pc.Logger.Printf("[PIPELINE] Warning: could not write candidate files: %v", err)
		}
	}
	o.persist(ctx, state)
}

// reviewCandidates runs every reviewer and stores the joined verdicts.
// Verdicts are not stored if ctx ended mid-review, so a resumed run reviews again.
func (o *Orchestrator) reviewCandidates(ctx context.Context, state *types.PipelineState) error {
	verdicts := o.coordinator.ReviewAll(ctx, state.CandidateSet, review.Context{
		Aggregate:  state.Aggregate,
		FocusAreas: state.FocusAreas,
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	state.ReviewResults = verdicts
	o.persist(ctx, state)
	return nil
}

// inputs loads both artifacts once per process. Missing input is an *ingestion.InputError.
func (o *Orchestrator) inputs(state *types.PipelineState) (*ingestion.Artifact, *ingestion.Artifact, error) {
	if o.source != nil && o.target != nil {
		return o.source, o.target, nil
	}
	opts := ingestion.Options{
		MaxFileBytes: o.pc.Config.MaxFileBytes,
		Extensions:   o.pc.Config.Extensions,
	}
	src, err := ingestion.Load(state.Inputs.Source, opts)
	if err != nil {
		return nil, nil, err
	}
	tgt, err := ingestion.Load(state.Inputs.Target, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, check := range []struct {
		key, hash, path string
	}{
		{metaSourceSHA, src.Metadata.Hash, state.Inputs.Source},
		{metaTargetSHA, tgt.Metadata.Hash, state.Inputs.Target},
	} {
		if prev := state.Meta[check.key]; prev != "" && prev != check.hash {
			o.pc.Printer.Warn("%s changed since this session started; chunks already analyzed are kept", check.path)
		}
	}
	o.source, o.target = src, tgt
	return src, tgt, nil
}

// pairs chunks both inputs with the chunk size and split mode pinned on first use.
func (o *Orchestrator) pairs(state *types.PipelineState) ([]types.ChunkPair, error) {
	src, tgt, err := o.inputs(state)
	if err != nil {
		return nil, err
	}
	if state.Meta == nil {
		state.Meta = make(map[string]string)
	}

	size, _ := strconv.Atoi(state.Meta[metaChunkSize])
	if size <= 0 {
		size = o.pc.Config.ChunkSize
		if size <= 0 {
			size = config.DefaultChunkSize
		}
		state.Meta[metaChunkSize] = strconv.Itoa(size)
	}
	mode := state.Meta[metaSplitMode]
	if mode == "" {
		mode = o.pc.Config.SplitMode
		if mode == "" || mode == config.SplitAuto {
			mode = config.SplitLines
			if src.Sectioned || tgt.Sectioned {
				mode = config.SplitFiles
			}
		}
		state.Meta[metaSplitMode] = mode
	}

	srcChunks, err := split(src, size, mode)
	if err != nil {
		return nil, err
	}
	tgtChunks, err := split(tgt, size, mode)
	if err != nil {
		return nil, err
	}
	return chunking.Pair(srcChunks, tgtChunks), nil
}

func split(a *ingestion.Artifact, size int, mode string) ([]types.Chunk, error) {
	if mode == config.SplitFiles && a.Sectioned {
		return chunking.SplitFiles(a.Text, size)
	}
	return chunking.Split(a.Text, size)
}

func countDone(state *types.PipelineState, pairs []types.ChunkPair) int {
	n := 0
	for _, p := range pairs {
		if state.IsChunkDone(p.Index) {
			n++
		}
	}
	return n
}
