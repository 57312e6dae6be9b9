package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes one ingested side of a comparison.
// Hash lets a resumed run notice that the input changed underneath it.
type Metadata struct {
	Path    string    `json:"path"`
	ReadAt  time.Time `json:"read_at"`
	Hash    string    `json:"hash"`
	Files   int       `json:"files"`
	Bytes   int       `json:"bytes"`
	Skipped []string  `json:"skipped,omitempty"`
}

// NewMetadata fingerprints the flattened text of path.
func NewMetadata(path, text string) *Metadata {
	sum := sha256.Sum256([]byte(text))
	return &Metadata{
		Path:   path,
		ReadAt: time.Now().UTC(),
		Hash:   hex.EncodeToString(sum[:]),
		Bytes:  len(text),
	}
}
