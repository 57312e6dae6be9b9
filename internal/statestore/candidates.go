package statestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/repocompare/internal/types"
)

// ReviewStatus is the human review state of one candidate file.
type ReviewStatus string

// Review statuses. A human sets kept or dropped in the front matter; edited is detected.
const (
	ReviewPending ReviewStatus = "pending"
	ReviewKept    ReviewStatus = "kept"
	ReviewEdited  ReviewStatus = "edited"
	ReviewDropped ReviewStatus = "dropped"
)

// LedgerEntry tracks one candidate file.
type LedgerEntry struct {
	File      string       `json:"file"`
	Status    ReviewStatus `json:"status"`
	SHA256    string       `json:"sha256"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ReviewLedger records the review status of every candidate file of a session.
type ReviewLedger struct {
	Entries map[string]*LedgerEntry `json:"entries"`
}

// SyncReport lists what a human changed in the candidate files since they were written.
type SyncReport struct {
	Edited  []string
	Dropped []string
	Kept    []string
}

// Changed reports whether any candidate was edited or dropped.
func (r SyncReport) Changed() bool {
	return len(r.Edited) > 0 || len(r.Dropped) > 0
}

// CandidatePath returns the review file of one candidate.
func (s *FileStore) CandidatePath(sessionID, id string) string {
	return filepath.Join(s.SessionDir(sessionID), CandidatesDir, id+".md")
}

// WriteCandidateFiles writes one markdown file per candidate and resets the review ledger to pending.
// Files of candidates no longer in items are removed.
func (s *FileStore) WriteCandidateFiles(sessionID string, items []types.CandidateItem) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	dir := filepath.Join(s.SessionDir(sessionID), CandidatesDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create candidates directory: %w", err)
	}

	ledger := &ReviewLedger{Entries: make(map[string]*LedgerEntry, len(items))}
	now := s.now().UTC()
	for i, item := range items {
		header := candidateHeader{
			ID:         item.ID,
			Title:      item.Title,
			Priority:   item.Priority,
			Category:   item.Category,
			Complexity: item.Complexity,
			Status:     ReviewPending,
		}
		data, err := writeFrontMatter(header, item.Body)
		if err != nil {
			return err
		}
		path := s.CandidatePath(sessionID, item.ID)
		if err := writeFileAtomic(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write candidate %d: %w", i+1, err)
		}
		ledger.Entries[item.ID] = &LedgerEntry{
			File:      filepath.Base(path),
			Status:    ReviewPending,
			SHA256:    contentHash(item),
			UpdatedAt: now,
		}
	}

	if err := s.removeStaleCandidateFiles(dir, ledger); err != nil {
		return err
	}
	return s.saveLedger(sessionID, ledger)
}

// SyncCandidateFiles re-reads the candidate files and applies human edits to items.
// Items whose file sets status: dropped are removed. Unreadable or invalid files leave the item unchanged.
func (s *FileStore) SyncCandidateFiles(sessionID string, items []types.CandidateItem) ([]types.CandidateItem, SyncReport, error) {
	var report SyncReport
	ledger, err := s.LoadLedger(sessionID)
	if err != nil {
		return items, report, err
	}

	now := s.now().UTC()
	out := make([]types.CandidateItem, 0, len(items))
	for _, item := range items {
		entry, ok := ledger.Entries[item.ID]
		if !ok {
			out = append(out, item)
			continue
		}
		content, err := os.ReadFile(s.CandidatePath(sessionID, item.ID))
		if err != nil {
			s.Logger.Printf("[STATE] Warning: candidate file for %q unreadable, keeping generated version: %v", item.Title, err)
			out = append(out, item)
			continue
		}
		header, body, err := parseFrontMatter(content)
		if err != nil {
			s.Logger.Printf("[STATE] Warning: candidate file for %q is malformed, keeping generated version: %v", item.Title, err)
			out = append(out, item)
			continue
		}

		if header.Status == ReviewDropped {
			entry.Status = ReviewDropped
			entry.UpdatedAt = now
			report.Dropped = append(report.Dropped, item.ID)
			continue
		}

		edited := item
		edited.Title = strings.TrimSpace(header.Title)
		edited.Priority = header.Priority
		edited.Category = strings.TrimSpace(header.Category)
		edited.Complexity = header.Complexity
		edited.Body = body

		hash := contentHash(edited)
		switch {
		case hash != entry.SHA256:
			if err := edited.Validate(); err != nil {
				s.Logger.Printf("[STATE] Warning: edit to %q rejected: %v", item.Title, err)
				out = append(out, item)
				continue
			}
			entry.Status = ReviewEdited
			entry.SHA256 = hash
			entry.UpdatedAt = now
			report.Edited = append(report.Edited, item.ID)
			out = append(out, edited)
		case header.Status == ReviewKept:
			if entry.Status != ReviewKept {
				entry.Status = ReviewKept
				entry.UpdatedAt = now
			}
			report.Kept = append(report.Kept, item.ID)
			out = append(out, item)
		default:
			out = append(out, item)
		}
	}

	if err := s.saveLedger(sessionID, ledger); err != nil {
		return out, report, err
	}
	return out, report, nil
}

// LoadLedger reads the review ledger. A missing ledger is empty.
func (s *FileStore) LoadLedger(sessionID string) (*ReviewLedger, error) {
	ledger := &ReviewLedger{Entries: map[string]*LedgerEntry{}}
	data, err := os.ReadFile(filepath.Join(s.SessionDir(sessionID), LedgerFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledger, nil
		}
		return nil, fmt.Errorf("failed to read review ledger: %w", err)
	}
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("failed to parse review ledger: %w", err)
	}
	if ledger.Entries == nil {
		ledger.Entries = map[string]*LedgerEntry{}
	}
	for id, entry := range ledger.Entries {
		if entry == nil {
			return nil, fmt.Errorf("review ledger entry %s is empty", id)
		}
		switch entry.Status {
		case ReviewPending, ReviewKept, ReviewEdited, ReviewDropped:
		default:
			return nil, fmt.Errorf("review ledger entry %s has unknown status %q", id, entry.Status)
		}
	}
	return ledger, nil
}

func (s *FileStore) saveLedger(sessionID string, ledger *ReviewLedger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review ledger: %w", err)
	}
	if err := os.MkdirAll(s.SessionDir(sessionID), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.SessionDir(sessionID), LedgerFileName), data, 0644)
}

func (s *FileStore) removeStaleCandidateFiles(dir string, ledger *ReviewLedger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list candidate files: %w", err)
	}
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok || e.IsDir() {
			continue
		}
		if _, keep := ledger.Entries[id]; !keep {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove stale candidate file: %w", err)
			}
		}
	}
	return nil
}

// contentHash covers every human-editable field except the review status.
func contentHash(item types.CandidateItem) string {
	h := sha256.New()
	for _, part := range []string{
		strings.TrimSpace(item.Title),
		strconv.Itoa(item.Priority),
		strings.TrimSpace(item.Category),
		strconv.Itoa(item.Complexity),
		strings.TrimSpace(item.Body),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
