package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/repocompare/internal/schemas"
	"github.com/jonathan/repocompare/internal/types"
)

// CorruptStateError describes why a saved state document was rejected.
type CorruptStateError struct {
	Reason string
	Cause  error
}

func (e *CorruptStateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt state: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("corrupt state: %s", e.Reason)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Cause
}

// decodeState parses and checks a saved document. Any failure is a *CorruptStateError.
func decodeState(data []byte, sessionID string) (*types.PipelineState, error) {
	if !json.Valid(data) {
		return nil, &CorruptStateError{Reason: "not valid JSON"}
	}
	if err := schemas.Validate("state", string(data)); err != nil {
		return nil, &CorruptStateError{Reason: "schema violation", Cause: err}
	}

	var state types.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &CorruptStateError{Reason: "cannot decode", Cause: err}
	}
	if err := checkState(&state, sessionID); err != nil {
		return nil, err
	}
	if state.ChunkLedger == nil {
		state.ChunkLedger = make(map[int]*types.ChunkEntry)
	}
	return &state, nil
}

func checkState(state *types.PipelineState, sessionID string) error {
	if !state.Stage.Valid() {
		return &CorruptStateError{Reason: fmt.Sprintf("unknown stage %q", state.Stage)}
	}
	if state.Iteration < 0 {
		return &CorruptStateError{Reason: fmt.Sprintf("negative iteration %d", state.Iteration)}
	}
	if state.SessionID != sessionID {
		return &CorruptStateError{Reason: fmt.Sprintf("session id %q does not match %q", state.SessionID, sessionID)}
	}
	for idx, entry := range state.ChunkLedger {
		if idx < 0 || entry == nil || !entry.Status.Valid() {
			return &CorruptStateError{Reason: fmt.Sprintf("bad ledger entry %d", idx)}
		}
		if entry.Status == types.ChunkDone && entry.Result == nil {
			return &CorruptStateError{Reason: fmt.Sprintf("ledger entry %d is done without a result", idx)}
		}
	}
	return nil
}

// quarantine renames a rejected document aside so it can be inspected. It is never deleted.
func (s *FileStore) quarantine(path string) (string, error) {
	base := fmt.Sprintf("%s.corrupt-%s", path, s.now().UTC().Format("20060102T150405Z"))
	target := base
	for i := 1; ; i++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		}
		target = fmt.Sprintf("%s-%d", base, i)
	}
	if err := os.Rename(path, target); err != nil {
		return "", err
	}
	return target, nil
}
