// Package types provides type definitions for structured data used throughout the repocompare pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// Stage is a position in the forward-only pipeline state machine.
type Stage string

// Stages in execution order.
const (
	StageInitialized          Stage = "initialized"
	StageInputsProcessed      Stage = "inputs_processed"
	StageAnalyzing            Stage = "analyzing"
	StageAnalysisComplete     Stage = "analysis_complete"
	StageGeneratingCandidates Stage = "generating_candidates"
	StageCandidatesGenerated  Stage = "candidates_generated"
	StageFeedbackApplied      Stage = "feedback_applied"
	StageComplete             Stage = "complete"
)

// stageOrder lists every stage in the order the orchestrator visits them.
var stageOrder = []Stage{
	StageInitialized,
	StageInputsProcessed,
	StageAnalyzing,
	StageAnalysisComplete,
	StageGeneratingCandidates,
	StageCandidatesGenerated,
	StageFeedbackApplied,
	StageComplete,
}

// Stages returns the ordered list of stages.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Index returns the position of the stage in the execution order, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// AtLeast reports whether s is the same as or later than other.
func (s Stage) AtLeast(other Stage) bool {
	return s.Valid() && other.Valid() && s.Index() >= other.Index()
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}

// ErrStageRegression is returned when a caller tries to move the pipeline backwards.
type ErrStageRegression struct {
	From Stage
	To   Stage
}

func (e *ErrStageRegression) Error() string {
	return fmt.Sprintf("stage cannot move backwards from %s to %s", e.From, e.To)
}
