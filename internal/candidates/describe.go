package candidates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/repocompare/internal/types"
)

// Describe renders a candidate set as plain text for a prompt.
func Describe(items []types.CandidateItem) string {
	if len(items) == 0 {
		return "(no candidates)"
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. [%s] %s (priority %d, complexity %d, category %s)\n",
			i+1, item.ID, item.Title, item.Priority, item.Complexity, item.Category)
		if body := strings.TrimSpace(item.Body); body != "" {
			for _, line := range strings.Split(body, "\n") {
				sb.WriteString("   ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// DescribeAggregate renders the merged analysis as plain text for a prompt.
func DescribeAggregate(agg *types.AggregateResult) string {
	if agg == nil {
		return "(no analysis)"
	}
	var sb strings.Builder
	if len(agg.Summaries) > 0 {
		sb.WriteString("Summaries:\n")
		for _, s := range agg.Summaries {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}
	for _, group := range []struct {
		name  string
		items []types.Finding
	}{
		{"Techniques", agg.Techniques},
		{"Gaps", agg.Gaps},
		{"Risks", agg.Risks},
	} {
		if len(group.items) == 0 {
			continue
		}
		sb.WriteString(group.name)
		sb.WriteString(":\n")
		for _, f := range group.items {
			fmt.Fprintf(&sb, "- [P%d] %s", f.Priority, f.Title)
			if f.Detail != "" {
				sb.WriteString(": ")
				sb.WriteString(f.Detail)
			}
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "(no findings)"
	}
	return strings.TrimRight(sb.String(), "\n")
}

// DescribeVerdicts renders reviewer verdicts in reviewer name order.
func DescribeVerdicts(verdicts map[string]types.Verdict) string {
	if len(verdicts) == 0 {
		return "(no reviews)"
	}
	names := make([]string, 0, len(verdicts))
	for name := range verdicts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		v := verdicts[name]
		fmt.Fprintf(&sb, "- %s: score %.1f, approved %t. %s\n", name, v.Score, v.Approved, v.Summary)
		for _, c := range v.Concerns {
			sb.WriteString("  * ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
