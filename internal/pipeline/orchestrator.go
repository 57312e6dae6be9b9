package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"

	"github.com/google/uuid"

	"github.com/jonathan/repocompare/internal/analysis"
	"github.com/jonathan/repocompare/internal/candidates"
	"github.com/jonathan/repocompare/internal/feedback"
	"github.com/jonathan/repocompare/internal/ingestion"
	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/observability"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/review"
	"github.com/jonathan/repocompare/internal/statestore"
	"github.com/jonathan/repocompare/internal/types"
)

// Result summarizes a finished or suspended run.
type Result struct {
	SessionID  string
	Stage      types.Stage
	Outcome    types.Outcome
	Iteration  int
	Completed  bool
	Candidates []types.CandidateItem
	State      *types.PipelineState
}

// handler advances the state to target. stop ends the run early without error.
type handler struct {
	name   string
	target types.Stage
	run    func(ctx context.Context, state *types.PipelineState) (stop bool, err error)
}

// Orchestrator runs one session.
type Orchestrator struct {
	pc        *PipelineContext
	sessionID string

	processor   *analysis.Processor
	generator   *candidates.Generator
	coordinator *review.Coordinator
	controller  *feedback.Controller

	source *ingestion.Artifact
	target *ingestion.Artifact
}

// New wires the pipeline components from pc. An empty session id gets a fresh one.
func New(pc *PipelineContext) (*Orchestrator, error) {
	if pc == nil || pc.Store == nil {
		return nil, errors.New("pipeline: a state store is required")
	}
	if pc.Client == nil {
		return nil, errors.New("pipeline: a completion client is required")
	}
	if pc.Prompter == nil {
		return nil, errors.New("pipeline: a prompter is required")
	}
	if pc.Logger == nil {
		pc.Logger = log.New(io.Discard, "", 0)
	}
	if pc.Printer == nil {
		pc.Printer = observability.NewPrinter(io.Discard)
	}

	cfg := pc.Config
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := statestore.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if pc.Retry != nil {
		policy = *pc.Retry
	}

	analysisTier, err := tier(cfg.AnalysisTier, llm.TierStandard)
	if err != nil {
		return nil, err
	}
	generationTier, err := tier(cfg.GenerationTier, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}
	reviewTier, err := tier(cfg.ReviewTier, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	names := cfg.Reviewers
	if len(names) == 0 {
		names = review.BuiltinNames
	}
	reviewers, err := review.BuildReviewers(names, pc.Client, reviewTier, policy, pc.Logger)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{pc: pc, sessionID: sessionID}
	o.processor = &analysis.Processor{
		Client:       pc.Client,
		Logger:       pc.Logger,
		Tier:         analysisTier,
		Timeout:      cfg.ChunkTimeout(),
		Policy:       policy,
		DigestBudget: cfg.DigestBudget,
	}
	o.generator = &candidates.Generator{
		Client:        pc.Client,
		Logger:        pc.Logger,
		Tier:          generationTier,
		Timeout:       cfg.GenerationTimeout(),
		Policy:        policy,
		MaxCandidates: cfg.MaxCandidates,
	}
	o.coordinator = &review.Coordinator{
		Reviewers: reviewers,
		Timeout:   cfg.ReviewTimeout(),
		Logger:    pc.Logger,
	}
	o.controller = &feedback.Controller{
		Prompter:  pc.Prompter,
		Guard:     feedback.Guard{RefineCap: cfg.RefineCap},
		Files:     pc.Files,
		Presenter: pc.Printer,
		Logger:    pc.Logger,
	}
	return o, nil
}

// SessionID returns the session this orchestrator runs.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// Run loads the session and executes every stage it has not finished yet.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	state := o.pc.Store.Load(ctx, o.sessionID)
	if state.Completed {
		o.pc.Logger.Printf("[PIPELINE] Session %s is already complete", o.sessionID)
		o.pc.Printer.Success("Session %s is already complete (outcome: %s)", o.sessionID, state.Outcome)
		return resultOf(state), nil
	}
	if err := o.prepare(state); err != nil {
		return nil, err
	}
	o.controller.Persist = func(s *types.PipelineState) { o.persist(ctx, s) }

	handlers := o.handlers()
	for i, h := range handlers {
		if state.Stage.AtLeast(h.target) {
			o.pc.Logger.Printf("[PIPELINE] Skipping %s: stage is already %s", h.name, state.Stage)
			continue
		}
		o.pc.Printer.Stage(i+1, len(handlers), h.name)
		stop, err := h.run(ctx, state)
		if err != nil {
			o.persist(ctx, state)
			return resultOf(state), fmt.Errorf("%s: %w", h.name, err)
		}
		if stop {
			break
		}
	}
	return resultOf(state), nil
}

// Reset discards the session's state, chunk ledger and candidate files.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if err := o.pc.Store.Reset(ctx, o.sessionID); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", o.sessionID, err)
	}
	if f, ok := o.pc.Sink.(interface{ Forget(string) }); ok {
		f.Forget(o.sessionID)
	}
	o.source, o.target = nil, nil
	return nil
}

func (o *Orchestrator) handlers() []handler {
	return []handler{
		{name: "Processing inputs", target: types.StageInputsProcessed, run: o.processInputs},
		{name: "Analyzing chunks", target: types.StageAnalysisComplete, run: o.analyze},
		{name: "Generating and reviewing candidates", target: types.StageCandidatesGenerated, run: o.generateCandidates},
		{name: "Collecting feedback", target: types.StageFeedbackApplied, run: o.collectFeedback},
		{name: "Finalizing", target: types.StageComplete, run: o.finalize},
	}
}

// prepare binds configuration to a fresh state and checks a resumed one still matches it.
func (o *Orchestrator) prepare(state *types.PipelineState) error {
	cfg := o.pc.Config
	if state.MaxIterations == 0 {
		state.MaxIterations = cfg.MaxIterations
	}
	if state.MaxIterations <= 0 {
		return errors.New("max iterations must be positive")
	}

	if state.Inputs == (types.Inputs{}) {
		if cfg.Source == "" || cfg.Target == "" {
			return errors.New("source and target are required for a new session")
		}
		state.Inputs = types.Inputs{Source: cfg.Source, Target: cfg.Target}
		state.FocusAreas = cfg.FocusAreas
		return nil
	}

	want := types.Inputs{Source: cfg.Source, Target: cfg.Target}
	if (want.Source != "" || want.Target != "") && want != state.Inputs {
		return fmt.Errorf("session %s compares %s with %s; reset it to change inputs",
			o.sessionID, state.Inputs.Source, state.Inputs.Target)
	}
	if state.Stage == types.StageInitialized && len(cfg.FocusAreas) > 0 && !reflect.DeepEqual(cfg.FocusAreas, state.FocusAreas) {
		state.FocusAreas = cfg.FocusAreas
	}
	return nil
}

// persist saves state and mirrors it. Failures are logged; the in-memory state stays authoritative.
func (o *Orchestrator) persist(ctx context.Context, state *types.PipelineState) {
	state.Touch()
	ctx = context.WithoutCancel(ctx)
	if err := o.pc.Store.Save(ctx, state); err != nil {
		o.pc.Logger.Printf("[STATE] Warning: failed to save state for %s: %v", state.SessionID, err)
	}
	if o.pc.Sink != nil {
		if err := o.pc.Sink.Record(ctx, state); err != nil {
			o.pc.Logger.Printf("[STATE] Warning: failed to mirror state for %s: %v", state.SessionID, err)
		}
	}
}

func (o *Orchestrator) advance(ctx context.Context, state *types.PipelineState, stage types.Stage) error {
	if state.Stage.AtLeast(stage) {
		return nil
	}
	if err := state.Advance(stage); err != nil {
		return err
	}
	o.pc.Logger.Printf("[PIPELINE] Stage -> %s", stage)
	o.persist(ctx, state)
	return nil
}

func resultOf(state *types.PipelineState) *Result {
	return &Result{
		SessionID:  state.SessionID,
		Stage:      state.Stage,
		Outcome:    state.Outcome,
		Iteration:  state.Iteration,
		Completed:  state.Completed,
		Candidates: state.CandidateSet,
		State:      state,
	}
}

func tier(value string, fallback llm.ModelTier) (llm.ModelTier, error) {
	if value == "" {
		return fallback, nil
	}
	return llm.ParseTier(value)
}
