// Package candidates turns the aggregate analysis into reviewable improvement opportunities.
package candidates

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/prompts"
	"github.com/jonathan/repocompare/internal/retry"
	"github.com/jonathan/repocompare/internal/types"
	schemafiles "github.com/jonathan/repocompare/schemas"
)

// DefaultMaxCandidates bounds how many candidates one generation may return.
const DefaultMaxCandidates = 10

// candidateResponse mirrors the candidates schema.
type candidateResponse struct {
	Candidates []struct {
		Title          string   `json:"title"`
		Priority       int      `json:"priority"`
		Category       string   `json:"category"`
		Complexity     int      `json:"complexity"`
		Body           string   `json:"body"`
		SourceFindings []string `json:"source_findings"`
	} `json:"candidates"`
}

// Generator produces and refines candidate sets.
type Generator struct {
	Client        llm.Client
	Logger        *log.Logger
	Tier          llm.ModelTier
	Timeout       time.Duration
	Policy        retry.Policy
	MaxCandidates int
}

func (g *Generator) max() int {
	if g.MaxCandidates <= 0 {
		return DefaultMaxCandidates
	}
	return g.MaxCandidates
}

// Generate asks for a fresh candidate set. If every attempt fails, candidates are derived
// directly from the highest-priority findings and degraded is set.
func (g *Generator) Generate(ctx context.Context, agg *types.AggregateResult, focus []string) ([]types.CandidateItem, bool, error) {
	prompt, err := prompts.Render(prompts.CandidatesFile, "generate-candidates", map[string]string{
		"FocusAreas":    focusText(focus),
		"Aggregate":     DescribeAggregate(agg),
		"MaxCandidates": strconv.Itoa(g.max()),
		"Schema":        schemafiles.MustGet(schemafiles.Candidates),
	})
	if err != nil {
		return nil, false, err
	}

	items, err := g.call(ctx, "generate candidates", prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		g.logf("[CANDIDATES] Warning: generation failed, deriving candidates from findings: %v", err)
		return FromFindings(agg, g.max()), true, nil
	}
	if len(items) == 0 {
		g.logf("[CANDIDATES] Warning: generation returned no usable candidates, deriving from findings")
		return FromFindings(agg, g.max()), true, nil
	}
	return items, false, nil
}

// Refine regenerates the set from the current one plus human feedback.
// If every attempt fails the current set is returned unchanged and degraded is set.
func (g *Generator) Refine(ctx context.Context, agg *types.AggregateResult, current []types.CandidateItem,
	verdicts map[string]types.Verdict, feedback []string) ([]types.CandidateItem, bool, error) {
	prompt, err := prompts.Render(prompts.CandidatesFile, "refine-candidates", map[string]string{
		"Aggregate":  DescribeAggregate(agg),
		"Candidates": Describe(current),
		"Verdicts":   DescribeVerdicts(verdicts),
		"Feedback":   bulletList(feedback),
		"Schema":     schemafiles.MustGet(schemafiles.Candidates),
	})
	if err != nil {
		return nil, false, err
	}

	items, err := g.call(ctx, "refine candidates", prompt)
	if err != nil || len(items) == 0 {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		g.logf("[CANDIDATES] Warning: refinement failed, keeping current candidates: %v", err)
		return types.CloneCandidates(current), true, nil
	}
	return items, false, nil
}

func (g *Generator) call(ctx context.Context, name, prompt string) ([]types.CandidateItem, error) {
	var resp candidateResponse
	_, err := llm.GenerateStructured(ctx, g.Client, llm.StructuredRequest{
		Name:    name,
		Prompt:  prompt,
		Schema:  schemafiles.Candidates,
		Tier:    g.Tier,
		Timeout: g.Timeout,
		Policy:  g.Policy,
		Logger:  g.Logger,
	}, &resp)
	if err != nil {
		return nil, err
	}

	items := make([]types.CandidateItem, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		items = append(items, types.CandidateItem{
			Title:          strings.TrimSpace(c.Title),
			Priority:       c.Priority,
			Category:       strings.TrimSpace(c.Category),
			Complexity:     c.Complexity,
			Body:           strings.TrimSpace(c.Body),
			SourceFindings: c.SourceFindings,
		})
	}
	return g.finalize(items), nil
}

// finalize assigns stable ids, drops duplicates and invalid items, and caps the set size.
func (g *Generator) finalize(items []types.CandidateItem) []types.CandidateItem {
	out := make([]types.CandidateItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item.ID = types.CandidateID(item.Title)
		if seen[item.ID] {
			continue
		}
		if err := item.Validate(); err != nil {
			g.logf("[CANDIDATES] Dropping invalid candidate %q: %v", item.Title, err)
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
		if len(out) == g.max() {
			break
		}
	}
	return out
}

func (g *Generator) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

func focusText(focus []string) string {
	if len(focus) == 0 {
		return "all areas"
	}
	return strings.Join(focus, ", ")
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
