package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// candidateNamespace scopes candidate ids so the same title always maps to the same id.
var candidateNamespace = uuid.MustParse("6f1c3a2e-8d4b-4c1e-9a57-3b0f2d6e9c41")

// CandidateItem is a single opportunity produced for human review.
type CandidateItem struct {
	ID             string   `json:"id" yaml:"id" validate:"required"`
	Title          string   `json:"title" yaml:"title" validate:"required,max=200"`
	Priority       int      `json:"priority" yaml:"priority" validate:"gte=1,lte=5"`
	Category       string   `json:"category" yaml:"category" validate:"required"`
	Complexity     int      `json:"complexity" yaml:"complexity" validate:"gte=1,lte=5"`
	Body           string   `json:"body" yaml:"-"`
	SourceFindings []string `json:"source_findings,omitempty" yaml:"-"`
}

// Validate validates the CandidateItem using the validator.
func (c *CandidateItem) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// NormalizeTitle is the dedup key shared by findings and candidates.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// CandidateID derives the stable identifier for a candidate title.
func CandidateID(title string) string {
	return uuid.NewSHA1(candidateNamespace, []byte(NormalizeTitle(title))).String()
}

// CloneCandidates returns a deep copy of items.
func CloneCandidates(items []CandidateItem) []CandidateItem {
	if items == nil {
		return nil
	}
	out := make([]CandidateItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.SourceFindings != nil {
			out[i].SourceFindings = append([]string(nil), item.SourceFindings...)
		}
	}
	return out
}

// FilterCriteria describes the pure filter transformation a human can request.
type FilterCriteria struct {
	MinPriority   int      `json:"min_priority,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	MaxComplexity int      `json:"max_complexity,omitempty"`
}

// IsZero reports whether no criterion is set.
func (f FilterCriteria) IsZero() bool {
	return f.MinPriority == 0 && len(f.Categories) == 0 && f.MaxComplexity == 0
}
