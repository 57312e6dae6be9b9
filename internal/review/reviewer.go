// Package review runs independent automated reviewers over a candidate set.
package review

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/repocompare/internal/candidates"
	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/prompts"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/types"
	schemafiles "github.com/jonathan/repocompare/schemas"
)

// Built-in reviewer names.
const (
	Feasibility = "feasibility"
	Impact      = "impact"
	Risk        = "risk"
)

// BuiltinNames lists the reviewers available without extra configuration.
var BuiltinNames = []string{Feasibility, Impact, Risk}

// Context is the shared, read-only input every reviewer sees alongside its own copy of the candidates.
type Context struct {
	Aggregate  *types.AggregateResult
	FocusAreas []string
}

// Reviewer judges a candidate set from one angle.
type Reviewer interface {
	Name() string
	Review(ctx context.Context, items []types.CandidateItem, rc Context) (types.Verdict, error)
}

// verdictResponse mirrors the verdict schema.
type verdictResponse struct {
	Score    float64           `json:"score"`
	Approved bool              `json:"approved"`
	Summary  string            `json:"summary"`
	Concerns []string          `json:"concerns"`
	PerItem  map[string]string `json:"per_item"`
}

// LLMReviewer reviews through the completion service using the "review-<name>" prompt.
type LLMReviewer struct {
	name   string
	Client llm.Client
	Logger *log.Logger
	Tier   llm.ModelTier
	Policy retry.Policy
}

// NewLLMReviewer returns a reviewer for a built-in aspect.
func NewLLMReviewer(name string, client llm.Client, tier llm.ModelTier, policy retry.Policy, logger *log.Logger) (*LLMReviewer, error) {
	if !isBuiltin(name) {
		return nil, fmt.Errorf("unknown reviewer %q (available: %v)", name, BuiltinNames)
	}
	return &LLMReviewer{name: name, Client: client, Logger: logger, Tier: tier, Policy: policy}, nil
}

// Name returns the reviewer name.
func (r *LLMReviewer) Name() string {
	return r.name
}

// Review asks the completion service for a verdict. The per-call timeout comes from ctx.
func (r *LLMReviewer) Review(ctx context.Context, items []types.CandidateItem, rc Context) (types.Verdict, error) {
	prompt, err := prompts.Render(prompts.ReviewsFile, "review-"+r.name, map[string]string{
		"Aggregate":  candidates.DescribeAggregate(rc.Aggregate),
		"Candidates": candidates.Describe(items),
		"Schema":     schemafiles.MustGet(schemafiles.Verdict),
	})
	if err != nil {
		return types.Verdict{}, err
	}

	var resp verdictResponse
	if _, err := llm.GenerateStructured(ctx, r.Client, llm.StructuredRequest{
		Name:   r.name + " review",
		Prompt: prompt,
		Schema: schemafiles.Verdict,
		Tier:   r.Tier,
		Policy: r.Policy,
		Logger: r.Logger,
	}, &resp); err != nil {
		return types.Verdict{}, err
	}

	v := types.Verdict{
		Reviewer: r.name,
		Score:    resp.Score,
		Approved: resp.Approved,
		Summary:  resp.Summary,
		Concerns: resp.Concerns,
		PerItem:  knownItems(resp.PerItem, items),
	}
	if v.Concerns == nil {
		v.Concerns = []string{}
	}
	if err := v.Validate(); err != nil {
		return types.Verdict{}, fmt.Errorf("invalid %s verdict: %w", r.name, err)
	}
	return v, nil
}

// knownItems drops per-item notes for ids that are not in the reviewed set.
func knownItems(notes map[string]string, items []types.CandidateItem) map[string]string {
	if len(notes) == 0 {
		return nil
	}
	ids := make(map[string]bool, len(items))
	for _, item := range items {
		ids[item.ID] = true
	}
	out := make(map[string]string, len(notes))
	for id, note := range notes {
		if ids[id] {
			out[id] = note
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isBuiltin(name string) bool {
	for _, n := range BuiltinNames {
		if n == name {
			return true
		}
	}
	return false
}

// BuildReviewers constructs the named built-in reviewers in order.
func BuildReviewers(names []string, client llm.Client, tier llm.ModelTier, policy retry.Policy, logger *log.Logger) ([]Reviewer, error) {
	out := make([]Reviewer, 0, len(names))
	for _, name := range names {
		r, err := NewLLMReviewer(name, client, tier, policy, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
