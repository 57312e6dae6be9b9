// Package pipeline sequences ingestion, chunked analysis, candidate generation, review and
// the human feedback loop as a resumable, forward-only stage machine.
package pipeline

import (
	"context"
	"log"

	"github.com/jonathan/repocompare/internal/config"
	"github.com/jonathan/repocompare/internal/feedback"
	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/observability"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/statestore"
	"github.com/jonathan/repocompare/internal/types"
)

// Sink receives a copy of every persisted state. It never affects the run.
type Sink interface {
	Record(ctx context.Context, state *types.PipelineState) error
}

// PipelineContext carries every collaborator a run needs. Nothing is read from globals.
type PipelineContext struct {
	Config config.Config
	Store  statestore.Store
	// Files holds the per-candidate review files. Optional.
	Files    feedback.CandidateFiles
	Client   llm.Client
	Prompter feedback.Prompter
	// Sink mirrors persisted state elsewhere, e.g. PostgreSQL. Optional.
	Sink    Sink
	Printer *observability.Printer
	Logger  *log.Logger
	// Retry overrides the policy derived from Config.MaxRetries. Optional.
	Retry *retry.Policy
}
