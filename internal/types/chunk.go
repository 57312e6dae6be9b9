package types

import "time"

// Chunk is an ordered, bounded-size slice of an artifact.
type Chunk struct {
	Index           int    `json:"index"`
	Content         string `json:"content"`
	ApproximateSize int    `json:"approximate_size"`
}

// ChunkPair couples the source and target chunks that share an index.
// Either side is nil when that artifact produced fewer chunks.
type ChunkPair struct {
	Index  int    `json:"index"`
	Source *Chunk `json:"source,omitempty"`
	Target *Chunk `json:"target,omitempty"`
	Label  string `json:"label"`
}

// ChunkStatus tracks progress of a single ledger entry.
type ChunkStatus string

// Ledger entry statuses.
const (
	ChunkPending ChunkStatus = "pending"
	ChunkDone    ChunkStatus = "done"
)

// Valid reports whether the status is a known ledger status.
func (s ChunkStatus) Valid() bool {
	return s == ChunkPending || s == ChunkDone
}

// ChunkEntry is one slot in the chunk ledger.
type ChunkEntry struct {
	Status      ChunkStatus  `json:"status"`
	Result      *ChunkResult `json:"result,omitempty"`
	Degraded    bool         `json:"degraded,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
