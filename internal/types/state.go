package types

import (
	"sort"
	"time"
)

// StateVersion is the schema version written into every persisted state document.
const StateVersion = 1

// Inputs references the source material of a run.
type Inputs struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// PipelineState is the single source of truth for one run.
// It is persisted after every mutation so a restart resumes at the first unfinished stage.
type PipelineState struct {
	Version       int                 `json:"version"`
	SessionID     string              `json:"session_id"`
	Stage         Stage               `json:"stage"`
	Iteration     int                 `json:"iteration"`
	MaxIterations int                 `json:"max_iterations"`
	Inputs        Inputs              `json:"inputs"`
	FocusAreas    []string            `json:"focus_areas,omitempty"`
	ChunkLedger   map[int]*ChunkEntry `json:"chunk_ledger"`
	Aggregate     *AggregateResult    `json:"aggregate_result,omitempty"`
	ReviewResults map[string]Verdict  `json:"review_results,omitempty"`
	CandidateSet  []CandidateItem     `json:"candidate_set"`
	History       []FeedbackEntry     `json:"feedback_history"`
	SameCount     int                 `json:"consecutive_same_directive_count"`
	RefineBlocked bool                `json:"refine_blocked,omitempty"`
	PendingAction *FeedbackEntry      `json:"pending_action,omitempty"`
	Completed     bool                `json:"completed"`
	Outcome       Outcome             `json:"outcome,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Meta          map[string]string   `json:"meta,omitempty"`
}

// NewPipelineState returns a fresh state at StageInitialized.
func NewPipelineState(sessionID string, maxIterations int) *PipelineState {
	now := time.Now().UTC()
	return &PipelineState{
		Version:       StateVersion,
		SessionID:     sessionID,
		Stage:         StageInitialized,
		MaxIterations: maxIterations,
		ChunkLedger:   make(map[int]*ChunkEntry),
		CandidateSet:  []CandidateItem{},
		History:       []FeedbackEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Advance moves the state to stage. Moving backwards is refused.
func (s *PipelineState) Advance(stage Stage) error {
	if !stage.Valid() {
		return &ErrStageRegression{From: s.Stage, To: stage}
	}
	if s.Stage.Valid() && stage.Index() < s.Stage.Index() {
		return &ErrStageRegression{From: s.Stage, To: stage}
	}
	s.Stage = stage
	s.Touch()
	return nil
}

// Touch records a mutation time.
func (s *PipelineState) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Entry returns the ledger entry for index, creating a pending one when absent.
func (s *PipelineState) Entry(index int) *ChunkEntry {
	if s.ChunkLedger == nil {
		s.ChunkLedger = make(map[int]*ChunkEntry)
	}
	entry, ok := s.ChunkLedger[index]
	if !ok || entry == nil {
		entry = &ChunkEntry{Status: ChunkPending}
		s.ChunkLedger[index] = entry
	}
	return entry
}

// IsChunkDone reports whether index has a finished result.
func (s *PipelineState) IsChunkDone(index int) bool {
	entry, ok := s.ChunkLedger[index]
	return ok && entry != nil && entry.Status == ChunkDone && entry.Result != nil
}

// MarkChunkDone stores result for index. A done entry is never overwritten.
func (s *PipelineState) MarkChunkDone(index int, result ChunkResult, degraded bool) bool {
	if s.IsChunkDone(index) {
		return false
	}
	now := time.Now().UTC()
	entry := s.Entry(index)
	entry.Status = ChunkDone
	entry.Result = &result
	entry.Degraded = degraded
	entry.CompletedAt = &now
	s.Touch()
	return true
}

// DoneResults returns the ledger results in ascending index order for indices [0, n).
// ok is false if any index in range is not done.
func (s *PipelineState) DoneResults(n int) (results []ChunkResult, ok bool) {
	results = make([]ChunkResult, 0, n)
	for i := 0; i < n; i++ {
		if !s.IsChunkDone(i) {
			return results, false
		}
		results = append(results, *s.ChunkLedger[i].Result)
	}
	return results, true
}

// LedgerCounts returns how many entries are done and how many of those were degraded.
func (s *PipelineState) LedgerCounts() (done, degraded int) {
	for _, entry := range s.ChunkLedger {
		if entry != nil && entry.Status == ChunkDone {
			done++
			if entry.Degraded {
				degraded++
			}
		}
	}
	return done, degraded
}

// LedgerIndices returns the ledger indices in ascending order.
func (s *PipelineState) LedgerIndices() []int {
	indices := make([]int, 0, len(s.ChunkLedger))
	for i := range s.ChunkLedger {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// ResetAnalysis clears everything derived from chunk analysis so it can be recomputed.
func (s *PipelineState) ResetAnalysis() {
	s.ChunkLedger = make(map[int]*ChunkEntry)
	s.Aggregate = nil
	s.ReviewResults = nil
	s.Touch()
}

// AppendFeedback appends entry to the history. Entries are never modified afterwards.
func (s *PipelineState) AppendFeedback(entry FeedbackEntry) {
	s.History = append(s.History, entry)
	s.Touch()
}

// LastDirective returns the most recently applied directive, or "" if none.
func (s *PipelineState) LastDirective() Directive {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Directive
}
