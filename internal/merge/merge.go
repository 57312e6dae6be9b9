// Package merge combines per-chunk results into one aggregate view.
package merge

import (
	"sort"
	"strings"

	"github.com/jonathan/repocompare/internal/types"
)

// Merge folds results, given in chunk index order, into an AggregateResult.
// Within each list field the first occurrence of a normalized title wins.
// Lists are then stably sorted by priority descending, so ties keep chunk order.
func Merge(results []types.ChunkResult) types.AggregateResult {
	agg := types.AggregateResult{
		Summaries:  []string{},
		Techniques: []types.Finding{},
		Gaps:       []types.Finding{},
		Risks:      []types.Finding{},
		ChunkCount: len(results),
	}
	seenTechniques := map[string]bool{}
	seenGaps := map[string]bool{}
	seenRisks := map[string]bool{}

	for _, r := range results {
		if s := strings.TrimSpace(r.Summary); s != "" {
			agg.Summaries = append(agg.Summaries, s)
		}
		agg.Techniques = appendUnseen(agg.Techniques, r.Techniques, seenTechniques)
		agg.Gaps = appendUnseen(agg.Gaps, r.Gaps, seenGaps)
		agg.Risks = appendUnseen(agg.Risks, r.Risks, seenRisks)
	}

	SortByPriority(agg.Techniques)
	SortByPriority(agg.Gaps)
	SortByPriority(agg.Risks)
	return agg
}

func appendUnseen(dst, src []types.Finding, seen map[string]bool) []types.Finding {
	for _, f := range src {
		key := types.NormalizeTitle(f.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, f)
	}
	return dst
}

// SortByPriority stably sorts findings by priority, highest first.
func SortByPriority(findings []types.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Priority > findings[j].Priority
	})
}

// IsSortedByPriority reports whether findings are in non-increasing priority order.
func IsSortedByPriority(findings []types.Finding) bool {
	for i := 1; i < len(findings); i++ {
		if findings[i].Priority > findings[i-1].Priority {
			return false
		}
	}
	return true
}
