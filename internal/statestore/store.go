// Package statestore persists pipeline state so an interrupted run resumes where it stopped.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/jonathan/repocompare/internal/types"
)

// File names inside a session directory.
const (
	StateFileName  = "state.json"
	LedgerFileName = "review_ledger.json"
	CandidatesDir  = "candidates"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is the durable home of PipelineState.
type Store interface {
	// Load returns the saved state for sessionID. A missing or corrupt document yields a fresh state.
	Load(ctx context.Context, sessionID string) *types.PipelineState
	// Save durably replaces the saved state.
	Save(ctx context.Context, state *types.PipelineState) error
	// Reset discards the saved state and every per-session file derived from it.
	Reset(ctx context.Context, sessionID string) error
}

// ValidateSessionID rejects identifiers that cannot be used as a directory name.
func ValidateSessionID(sessionID string) error {
	if !sessionIDPattern.MatchString(sessionID) {
		return fmt.Errorf("invalid session id %q: use letters, digits, '.', '_' or '-'", sessionID)
	}
	return nil
}

// FileStore keeps one directory per session under Root.
type FileStore struct {
	Root   string
	Logger *log.Logger
	now    func() time.Time
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, logger *log.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{Root: root, Logger: logger, now: time.Now}, nil
}

// SessionDir returns the directory holding every file of sessionID.
func (s *FileStore) SessionDir(sessionID string) string {
	return filepath.Join(s.Root, sessionID)
}

// StatePath returns the path of the state document of sessionID.
func (s *FileStore) StatePath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), StateFileName)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, sessionID string) *types.PipelineState {
	path := s.StatePath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.Logger.Printf("[STATE] Warning: could not read %s, starting fresh: %v", path, err)
		}
		return types.NewPipelineState(sessionID, 0)
	}

	state, err := decodeState(data, sessionID)
	if err != nil {
		moved, qerr := s.quarantine(path)
		if qerr != nil {
			s.Logger.Printf("[STATE] Warning: state for %s is corrupt (%v) and could not be quarantined: %v", sessionID, err, qerr)
		} else {
			s.Logger.Printf("[STATE] Warning: state for %s is corrupt (%v); moved to %s and starting fresh", sessionID, err, moved)
		}
		return types.NewPipelineState(sessionID, 0)
	}
	return state
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, state *types.PipelineState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil state")
	}
	if err := ValidateSessionID(state.SessionID); err != nil {
		return err
	}
	if state.Version == 0 {
		state.Version = types.StateVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(s.SessionDir(state.SessionID), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := writeFileAtomic(s.StatePath(state.SessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Reset implements Store. Quarantined documents are kept.
func (s *FileStore) Reset(_ context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	dir := s.SessionDir(sessionID)
	for _, name := range []string{StateFileName, LedgerFileName} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	if err := os.RemoveAll(filepath.Join(dir, CandidatesDir)); err != nil {
		return fmt.Errorf("failed to remove candidate files: %w", err)
	}
	s.Logger.Printf("[STATE] Reset session %s", sessionID)
	return nil
}

// Exists reports whether a state document has been saved for sessionID.
func (s *FileStore) Exists(sessionID string) bool {
	_, err := os.Stat(s.StatePath(sessionID))
	return err == nil
}
