package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/repocompare/internal/merge"
	"github.com/jonathan/repocompare/internal/types"
)

// Digest renders the highest-priority findings of prior results into at most budget characters.
// It depends only on prior, so a resumed run rebuilds exactly the digest an uninterrupted run used.
func Digest(prior []types.ChunkResult, budget int) string {
	if len(prior) == 0 || budget <= 0 {
		return ""
	}
	agg := merge.Merge(prior)

	findings := make([]types.Finding, 0, len(agg.Techniques)+len(agg.Gaps)+len(agg.Risks))
	for _, group := range []struct {
		kind  string
		items []types.Finding
	}{
		{"technique", agg.Techniques},
		{"gap", agg.Gaps},
		{"risk", agg.Risks},
	} {
		for _, f := range group.items {
			f.Category = group.kind
			findings = append(findings, f)
		}
	}
	// List order breaks priority ties.
	merge.SortByPriority(findings)

	var sb strings.Builder
	size := 0
	for _, f := range findings {
		line := fmt.Sprintf("- [P%d] %s (%s)\n", f.Priority, f.Title, f.Category)
		n := utf8.RuneCountInString(line)
		if size+n > budget {
			break
		}
		sb.WriteString(line)
		size += n
	}
	return strings.TrimRight(sb.String(), "\n")
}
