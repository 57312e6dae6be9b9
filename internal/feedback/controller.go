package feedback

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/repocompare/internal/candidates"
	"github.com/jonathan/repocompare/internal/statestore"
	"github.com/jonathan/repocompare/internal/types"
)

// Question is shown every time the loop waits for a directive.
const Question = "Directive [approve | filter | refine | change_focus | skip]: "

// Actions performs the directives that need the completion service.
type Actions interface {
	// Refine regenerates the candidate set with the given feedback and re-reviews it.
	Refine(ctx context.Context, state *types.PipelineState, feedback []string) error
	// ChangeFocus re-runs analysis with new focus areas, then regenerates and re-reviews.
	ChangeFocus(ctx context.Context, state *types.PipelineState, areas []string) error
}

// CandidateFiles is the per-candidate file view a human can edit between iterations.
type CandidateFiles interface {
	WriteCandidateFiles(sessionID string, items []types.CandidateItem) error
	SyncCandidateFiles(sessionID string, items []types.CandidateItem) ([]types.CandidateItem, statestore.SyncReport, error)
}

// Presenter shows the current iteration to the human.
type Presenter interface {
	PresentIteration(state *types.PipelineState)
}

// Controller drives the directive loop. Files, Presenter and Persist are optional.
type Controller struct {
	Prompter  Prompter
	Guard     Guard
	Files     CandidateFiles
	Presenter Presenter
	Persist   func(state *types.PipelineState)
	Logger    *log.Logger
	Now       func() time.Time
}

// Run loops until a terminal directive or the iteration budget is spent.
// The outcome is also recorded on state.
func (c *Controller) Run(ctx context.Context, state *types.PipelineState, actions Actions) (types.Outcome, error) {
	for {
		if state.Iteration >= state.MaxIterations {
			c.logf("[FEEDBACK] Warning: iteration budget of %d spent, continuing with %d current candidates",
				state.MaxIterations, len(state.CandidateSet))
			return c.finish(state, types.OutcomeExhausted), nil
		}
		state.Iteration++
		c.syncFiles(state)
		c.persist(state)

		if c.Presenter != nil {
			c.Presenter.PresentIteration(state)
		}

		resp := Response{Directive: types.DirectiveInterrupted}
		text, err := c.Prompter.Prompt(ctx, Question)
		if err == nil {
			resp = ParseResponse(text)
		} else {
			c.logf("[FEEDBACK] No directive received: %v", err)
		}

		applied := c.Guard.Apply(state, resp.Directive)
		entry := types.FeedbackEntry{
			Iteration: state.Iteration,
			Directive: applied,
			Payload:   resp.Payload,
			Timestamp: c.now(),
		}
		if applied != resp.Directive {
			entry.Requested = resp.Directive
			c.logf("[FEEDBACK] Warning: %s repeated %d times in a row, ignoring it this iteration. Choose a different directive.",
				resp.Directive, state.SameCount)
		}
		c.logf("[FEEDBACK] Iteration %d/%d: %s", state.Iteration, state.MaxIterations, applied)

		switch applied {
		case types.DirectiveApprove:
			state.AppendFeedback(entry)
			return c.finish(state, types.OutcomeApproved), nil
		case types.DirectiveSkip:
			state.AppendFeedback(entry)
			return c.finish(state, types.OutcomeSkipped), nil
		case types.DirectiveInterrupted:
			state.AppendFeedback(entry)
			return c.finish(state, types.OutcomeInterrupted), nil

		case types.DirectiveFilter:
			state.AppendFeedback(entry)
			before := len(state.CandidateSet)
			state.CandidateSet = candidates.Filter(state.CandidateSet, entry.Payload.Filter)
			c.logf("[FEEDBACK] Filter kept %d of %d candidates", len(state.CandidateSet), before)
			c.writeFiles(state)
			c.persist(state)

		case types.DirectiveRefine, types.DirectiveChangeFocus:
			pending := entry
			state.PendingAction = &pending
			state.AppendFeedback(entry)
			c.persist(state)
			if err := c.perform(ctx, state, actions, entry); err != nil {
				if ctx.Err() != nil {
					return c.finish(state, types.OutcomeInterrupted), nil
				}
				return types.OutcomeNone, err
			}

		default:
			state.AppendFeedback(entry)
			c.persist(state)
		}
	}
}

// ResumePending replays a refine or change_focus whose side effects were cut short.
func (c *Controller) ResumePending(ctx context.Context, state *types.PipelineState, actions Actions) error {
	if state.PendingAction == nil {
		return nil
	}
	entry := *state.PendingAction
	c.logf("[FEEDBACK] Resuming interrupted %s from iteration %d", entry.Directive, entry.Iteration)
	return c.perform(ctx, state, actions, entry)
}

func (c *Controller) perform(ctx context.Context, state *types.PipelineState, actions Actions, entry types.FeedbackEntry) error {
	var err error
	switch entry.Directive {
	case types.DirectiveRefine:
		err = actions.Refine(ctx, state, entry.Payload.FeedbackItems)
	case types.DirectiveChangeFocus:
		err = actions.ChangeFocus(ctx, state, entry.Payload.FocusAreas)
	default:
		c.logf("[FEEDBACK] Warning: dropping pending action with directive %q", entry.Directive)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", entry.Directive, err)
	}
	state.PendingAction = nil
	c.writeFiles(state)
	c.persist(state)
	return nil
}

func (c *Controller) finish(state *types.PipelineState, outcome types.Outcome) types.Outcome {
	state.Outcome = outcome
	c.persist(state)
	return outcome
}

// syncFiles folds human edits to the candidate files back into the set.
func (c *Controller) syncFiles(state *types.PipelineState) {
	if c.Files == nil {
		return
	}
	items, report, err := c.Files.SyncCandidateFiles(state.SessionID, state.CandidateSet)
	if err != nil {
		c.logf("[FEEDBACK] Warning: could not read candidate files: %v", err)
		return
	}
	if report.Changed() {
		c.logf("[FEEDBACK] Applied file edits: %d edited, %d dropped", len(report.Edited), len(report.Dropped))
		state.CandidateSet = items
		state.Touch()
	}
}

func (c *Controller) writeFiles(state *types.PipelineState) {
	if c.Files == nil {
		return
	}
	if err := c.Files.WriteCandidateFiles(state.SessionID, state.CandidateSet); err != nil {
		c.logf("[FEEDBACK] Warning: could not write candidate files: %v", err)
	}
}

func (c *Controller) persist(state *types.PipelineState) {
	if c.Persist != nil {
		c.Persist(state)
	}
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Controller) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
