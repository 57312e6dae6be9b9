package candidates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/repocompare/internal/types"
)

// Filter keeps the items matching every set criterion, preserving order. It never calls the completion service.
func Filter(items []types.CandidateItem, criteria types.FilterCriteria) []types.CandidateItem {
	categories := make(map[string]bool, len(criteria.Categories))
	for _, c := range criteria.Categories {
		categories[strings.ToLower(strings.TrimSpace(c))] = true
	}

	out := make([]types.CandidateItem, 0, len(items))
	for _, item := range items {
		if criteria.MinPriority > 0 && item.Priority < criteria.MinPriority {
			continue
		}
		if criteria.MaxComplexity > 0 && item.Complexity > criteria.MaxComplexity {
			continue
		}
		if len(categories) > 0 && !categories[strings.ToLower(item.Category)] {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FromFindings derives up to limit candidates straight from the aggregate, highest priority first.
// It is the fallback when generation fails.
func FromFindings(agg *types.AggregateResult, limit int) []types.CandidateItem {
	if agg == nil {
		return []types.CandidateItem{}
	}
	type sourced struct {
		kind string
		types.Finding
	}
	var all []sourced
	for _, f := range agg.Gaps {
		all = append(all, sourced{"gap", f})
	}
	for _, f := range agg.Techniques {
		all = append(all, sourced{"technique", f})
	}
	for _, f := range agg.Risks {
		all = append(all, sourced{"risk", f})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority > all[j].Priority })

	out := make([]types.CandidateItem, 0, limit)
	seen := map[string]bool{}
	for _, f := range all {
		if len(out) == limit {
			break
		}
		id := types.CandidateID(f.Title)
		if seen[id] {
			continue
		}
		seen[id] = true
		category := f.Category
		if category == "" {
			category = f.kind
		}
		item := types.CandidateItem{
			ID:             id,
			Title:          f.Title,
			Priority:       clamp(f.Priority),
			Category:       category,
			Complexity:     3,
			Body:           fmt.Sprintf("Address the %s: %s\n\n%s", f.kind, f.Title, f.Detail),
			SourceFindings: []string{f.Title},
		}
		if item.Validate() == nil {
			out = append(out, item)
		}
	}
	return out
}

func clamp(p int) int {
	if p < 1 {
		return 1
	}
	if p > 5 {
		return 5
	}
	return p
}
