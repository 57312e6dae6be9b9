package types

// Finding is a single observation produced while comparing a chunk pair.
type Finding struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
	Category string `json:"category,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ChunkResult is the structured output of analyzing one chunk pair.
type ChunkResult struct {
	Summary    string    `json:"summary"`
	Techniques []Finding `json:"techniques"`
	Gaps       []Finding `json:"gaps"`
	Risks      []Finding `json:"risks"`
	// Extra keeps fields the completion service returned that this version does not model.
	Extra map[string]any `json:"extra,omitempty"`
}

// EmptyChunkResult is the documented default substituted when a chunk cannot be analyzed.
func EmptyChunkResult() ChunkResult {
	return ChunkResult{
		Summary:    "",
		Techniques: []Finding{},
		Gaps:       []Finding{},
		Risks:      []Finding{},
	}
}

// FindingCount returns the number of findings across all list fields.
func (r ChunkResult) FindingCount() int {
	return len(r.Techniques) + len(r.Gaps) + len(r.Risks)
}

// AggregateResult is the merged view over every chunk result.
type AggregateResult struct {
	Summaries  []string  `json:"summaries"`
	Techniques []Finding `json:"techniques"`
	Gaps       []Finding `json:"gaps"`
	Risks      []Finding `json:"risks"`
	ChunkCount int       `json:"chunk_count"`
}

// AllFindings returns techniques, gaps and risks in that order.
func (a *AggregateResult) AllFindings() []Finding {
	if a == nil {
		return nil
	}
	out := make([]Finding, 0, len(a.Techniques)+len(a.Gaps)+len(a.Risks))
	out = append(out, a.Techniques...)
	out = append(out, a.Gaps...)
	out = append(out, a.Risks...)
	return out
}
