// Package analysis runs the per-chunk comparison and keeps the chunk ledger current.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/parsing"
	"github.com/jonathan/repocompare/internal/prompts"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/types"
	schemafiles "github.com/jonathan/repocompare/schemas"
)

// DefaultDigestBudget bounds the carried-over findings digest, in characters.
const DefaultDigestBudget = 1500

var knownResultFields = []string{"summary", "techniques", "gaps", "risks"}

// Processor compares one chunk pair at a time.
type Processor struct {
	Client       llm.Client
	Logger       *log.Logger
	Tier         llm.ModelTier
	Timeout      time.Duration
	Policy       retry.Policy
	DigestBudget int
	FocusAreas   []string
}

// Process analyzes pair with digest as context.
// When every attempt fails the documented empty result is returned with degraded set.
// Cancellation of ctx is returned as an error so the chunk stays pending.
func (p *Processor) Process(ctx context.Context, pair types.ChunkPair, digest string) (types.ChunkResult, bool, error) {
	prompt, err := p.buildPrompt(pair, digest)
	if err != nil {
		return types.ChunkResult{}, false, err
	}

	var result types.ChunkResult
	raw, err := llm.GenerateStructured(ctx, p.Client, llm.StructuredRequest{
		Name:    pair.Label,
		Prompt:  prompt,
		Schema:  schemafiles.ChunkResult,
		Tier:    p.Tier,
		Timeout: p.Timeout,
		Policy:  p.Policy,
		Logger:  p.Logger,
	}, &result)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ChunkResult{}, false, ctxErr
		}
		// Refused credentials fail every later chunk too; stop so the run can resume once fixed.
		var rejected *llm.ProviderError
		if errors.As(err, &rejected) && rejected.AuthFailure() {
			return types.ChunkResult{}, false, fmt.Errorf("completion request rejected: %w", err)
		}
		var exhausted *llm.ExhaustedError
		if !errors.As(err, &exhausted) {
			p.logf("[ANALYSIS] Warning: %s failed unexpectedly: %v", pair.Label, err)
		} else {
			p.logf("[ANALYSIS] Warning: %s degraded to an empty result: %v", pair.Label, err)
		}
		return types.EmptyChunkResult(), true, nil
	}

	normalize(&result)
	result.Extra = parsing.Extras(raw, knownResultFields...)
	return result, false, nil
}

// ProcessAll walks pairs in ascending index order, skipping chunks the ledger already marks done.
// Each new result is stored in state and persist is called before the next chunk starts.
func (p *Processor) ProcessAll(ctx context.Context, state *types.PipelineState, pairs []types.ChunkPair, persist func()) error {
	for _, pair := range pairs {
		state.Entry(pair.Index)
	}

	budget := p.DigestBudget
	if budget <= 0 {
		budget = DefaultDigestBudget
	}

	prior := make([]types.ChunkResult, 0, len(pairs))
	for _, pair := range pairs {
		if state.IsChunkDone(pair.Index) {
			prior = append(prior, *state.ChunkLedger[pair.Index].Result)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		result, degraded, err := p.Process(ctx, pair, Digest(prior, budget))
		if err != nil {
			return fmt.Errorf("%s: %w", pair.Label, err)
		}
		state.MarkChunkDone(pair.Index, result, degraded)
		persist()
		prior = append(prior, result)

		status := "done"
		if degraded {
			status = "degraded"
		}
		p.logf("[ANALYSIS] %s %s in %s (%d findings)", pair.Label, status, time.Since(start).Round(time.Millisecond), result.FindingCount())
	}
	return nil
}

func (p *Processor) buildPrompt(pair types.ChunkPair, digest string) (string, error) {
	empty := prompts.MustGet(prompts.AnalysisFile, "empty-side")
	source, target := empty, empty
	if pair.Source != nil {
		source = pair.Source.Content
	}
	if pair.Target != nil {
		target = pair.Target.Content
	}
	if digest == "" {
		digest = prompts.MustGet(prompts.AnalysisFile, "no-digest")
	}
	focus := strings.Join(p.FocusAreas, ", ")
	if focus == "" {
		focus = prompts.MustGet(prompts.AnalysisFile, "all-areas")
	}
	return prompts.Render(prompts.AnalysisFile, "compare-chunk", map[string]string{
		"Label":      pair.Label,
		"FocusAreas": focus,
		"Digest":     digest,
		"Schema":     schemafiles.MustGet(schemafiles.ChunkResult),
		"Source":     source,
		"Target":     target,
	})
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

func normalize(r *types.ChunkResult) {
	if r.Techniques == nil {
		r.Techniques = []types.Finding{}
	}
	if r.Gaps == nil {
		r.Gaps = []types.Finding{}
	}
	if r.Risks == nil {
		r.Risks = []types.Finding{}
	}
}
