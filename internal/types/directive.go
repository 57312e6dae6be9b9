package types

import "time"

// Directive is one of the fixed human responses that drive the feedback loop.
type Directive string

// Directive vocabulary.
const (
	DirectiveApprove     Directive = "approve"
	DirectiveFilter      Directive = "filter"
	DirectiveRefine      Directive = "refine"
	DirectiveChangeFocus Directive = "change_focus"
	DirectiveSkip        Directive = "skip"
	DirectiveInterrupted Directive = "interrupted"
	// DirectiveNull is the forced no-op used by loop protection.
	DirectiveNull Directive = "null"
)

// Terminal reports whether the directive ends the feedback loop.
func (d Directive) Terminal() bool {
	switch d {
	case DirectiveApprove, DirectiveSkip, DirectiveInterrupted:
		return true
	}
	return false
}

// Valid reports whether d is part of the vocabulary (including the forced null).
func (d Directive) Valid() bool {
	switch d {
	case DirectiveApprove, DirectiveFilter, DirectiveRefine, DirectiveChangeFocus,
		DirectiveSkip, DirectiveInterrupted, DirectiveNull:
		return true
	}
	return false
}

// FeedbackPayload carries the arguments that accompany a directive.
type FeedbackPayload struct {
	FeedbackItems []string       `json:"feedback_items,omitempty"`
	Filter        FilterCriteria `json:"filter,omitempty"`
	FocusAreas    []string       `json:"focus_areas,omitempty"`
	Raw           string         `json:"raw,omitempty"`
}

// FeedbackEntry is an immutable record in the feedback history.
type FeedbackEntry struct {
	Iteration int             `json:"iteration"`
	Directive Directive       `json:"directive"`
	Requested Directive       `json:"requested,omitempty"`
	Payload   FeedbackPayload `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Outcome is how a feedback loop ended.
type Outcome string

// Feedback loop outcomes.
const (
	OutcomeNone        Outcome = ""
	OutcomeApproved    Outcome = "approved"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeExhausted   Outcome = "exhausted"
)
