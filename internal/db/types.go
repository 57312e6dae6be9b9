package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run represents a pipeline run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   string     `json:"session_id"`
	SourcePath  string     `json:"source_path"`
	TargetPath  string     `json:"target_path"`
	Status      string     `json:"status"`
	Outcome     *string    `json:"outcome,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
)

// Artifact steps mirrored from pipeline state
const (
	StepAggregate  = "aggregate_result"
	StepCandidates = "candidate_set"
	StepReviews    = "review_results"
	StepFeedback   = "feedback_history"
)

// Artifact categories
const (
	CategoryAnalysis = "analysis"
	CategoryReview   = "review"
	CategoryFeedback = "feedback"
)

// Checkpoint is one saved copy of the full state document
type Checkpoint struct {
	ID        int64           `json:"id"`
	RunID     uuid.UUID       `json:"run_id"`
	Stage     string          `json:"stage"`
	Iteration int             `json:"iteration"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// ArtifactSummary is a lightweight view of an artifact for listing
type ArtifactSummary struct {
	Step      string    `json:"step"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}
