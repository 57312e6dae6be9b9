package types

import "github.com/go-playground/validator/v10"

// Verdict is the structured outcome of one named review pass.
type Verdict struct {
	Reviewer string            `json:"reviewer" validate:"required"`
	Score    float64           `json:"score" validate:"gte=0,lte=10"`
	Approved bool              `json:"approved"`
	Summary  string            `json:"summary"`
	Concerns []string          `json:"concerns"`
	PerItem  map[string]string `json:"per_item,omitempty"`
	// Default marks a neutral verdict substituted for a failed review.
	Default bool `json:"default,omitempty"`
}

// Validate validates the Verdict using the validator.
func (v *Verdict) Validate() error {
	validate := validator.New()
	return validate.Struct(v)
}

// DefaultVerdict is the neutral verdict used when a reviewer fails.
func DefaultVerdict(reviewer, reason string) Verdict {
	return Verdict{
		Reviewer: reviewer,
		Score:    5,
		Approved: false,
		Summary:  "review unavailable: " + reason,
		Concerns: []string{},
		Default:  true,
	}
}
