// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatwidget/internal/model"
	"github.com/jeranaias/chatwidget/internal/session"
	"github.com/jeranaias/chatwidget/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is a persisted conversation.
type Transcript struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Entries        model.EntryList       `json:"entries"`
	SessionState   json.RawMessage       `json:"session_state,omitempty"`
	RequestContext *model.RequestContext `json:"request_context,omitempty"`
}

// FromSnapshot builds a transcript from a store snapshot. id may be empty
// for a new transcript.
func FromSnapshot(id, modelName string, snap session.Snapshot, rc *model.RequestContext) *Transcript {
	t := &Transcript{
		ID:             id,
		Model:          modelName,
		Entries:        model.EntryList(model.CloneEntries(snap.Entries)),
		RequestContext: rc.Clone(),
	}
	if model.HasValue(snap.SessionState) {
		t.SessionState = append(json.RawMessage(nil), snap.SessionState...)
	}
	return t
}

// MessageCount returns the number of messages, not counting error entries.
func (t *Transcript) MessageCount() int {
	return len(model.MessagesOnly(t.Entries))
}

// Preview returns the first user message, shortened for listings.
func (t *Transcript) Preview() string {
	for _, msg := range model.MessagesOnly(t.Entries) {
		if msg.Role == model.RoleUser && msg.Content != "" {
			return util.TruncateWidth(util.FirstLine(msg.Content), 80)
		}
	}
	return ""
}

// ExportMarkdown renders the transcript as Markdown.
func (t *Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Summary + "\n\n")
	sb.WriteString("Transcript " + t.ID + ", created " + t.CreatedAt.Format(time.RFC3339))
	if t.Model != "" {
		sb.WriteString(", model " + t.Model)
	}
	sb.WriteString("\n\n---\n\n")

	for _, entry := range t.Entries {
		switch e := entry.(type) {
		case model.Message:
			sb.WriteString("**" + e.Role.DisplayName() + "**")
			if !e.Timestamp.IsZero() {
				sb.WriteString(" (" + e.Timestamp.Format("15:04") + ")")
			}
			sb.WriteString(":\n\n" + e.Content + "\n\n---\n\n")
		case model.ErrorEntry:
			sb.WriteString("> **Error " + e.Code + "**: " + e.Message + "\n\n---\n\n")
		}
	}
	return sb.String()
}

// TranscriptMeta is the listing view of a transcript.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// DefaultMaxTranscripts caps how many transcripts are kept.
const DefaultMaxTranscripts = 100

// TranscriptStore keeps transcripts as JSON files in one directory.
type TranscriptStore struct {
	// BaseDir is the directory holding the transcript files.
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited). The least
	// recently updated ones are removed first.
	MaxTranscripts int
}

// NewTranscriptStore creates the store, creating baseDir if needed.
func NewTranscriptStore(baseDir string) (*TranscriptStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("transcript directory is empty")
	}
	if err := os.MkdirAll(baseDir, util.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &TranscriptStore{
		BaseDir:        baseDir,
		MaxTranscripts: DefaultMaxTranscripts,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists t and returns its ID. A missing ID, summary or creation time
// is filled in.
func (s *TranscriptStore) Save(t *Transcript) (string, error) {
	if t.ID == "" {
		t.ID = newTranscriptID()
	}
	if err := validateID(t.ID); err != nil {
		return "", err
	}
	if t.Summary == "" {
		t.Summary = generateSummary(t)
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := util.AtomicWriteJSON(s.filePath(t.ID), t, 0600); err != nil {
		return "", fmt.Errorf("failed to save transcript %s: %w", t.ID, err)
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// generateSummary creates a summary from the first user message.
func generateSummary(t *Transcript) string {
	if preview := t.Preview(); preview != "" {
		return util.TruncateWidth(preview, 50)
	}
	return "New conversation"
}

// enforceLimit removes the least recently updated transcripts over the limit.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// List is most recent first.
	for _, meta := range metas[s.MaxTranscripts:] {
		_ = s.Delete(meta.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a transcript by ID.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", id, err)
	}
	return &t, nil
}

// Latest loads the most recently updated transcript.
func (s *TranscriptStore) Latest() (*Transcript, error) {
	return s.LoadByIndex(0)
}

// LoadByIndex loads a transcript by its index in List (0 = most recent).
func (s *TranscriptStore) LoadByIndex(index int) (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(metas[index].ID)
}

// Resolve loads a transcript by ID, by an unambiguous ID prefix, or by a
// 1-based listing position ("1" is the most recent).
func (s *TranscriptStore) Resolve(ref string) (*Transcript, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		return s.LoadByIndex(n - 1)
	}
	if t, err := s.Load(ref); err == nil {
		return t, nil
	}

	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	var match string
	for _, meta := range metas {
		if strings.HasPrefix(meta.ID, ref) {
			if match != "" {
				return nil, fmt.Errorf("transcript reference %q is ambiguous", ref)
			}
			match = meta.ID
		}
	}
	if match == "" {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(match)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved transcripts, most recent first. Unreadable files are
// skipped.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := make([]TranscriptMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, TranscriptMeta{
			ID:           t.ID,
			Summary:      t.Summary,
			Model:        t.Model,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			MessageCount: t.MessageCount(),
			Preview:      t.Preview(),
		})
	}

	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search returns transcripts whose summary or message content contains
// query, case-insensitively. An empty query lists everything.
func (s *TranscriptStore) Search(query string) ([]TranscriptMeta, error) {
	all, err := s.List()
	if err != nil || query == "" {
		return all, err
	}

	query = strings.ToLower(query)
	var results []TranscriptMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Summary), query) {
			results = append(results, meta)
			continue
		}
		t, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range model.MessagesOnly(t.Entries) {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a transcript by ID.
func (s *TranscriptStore) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved transcripts.
func (s *TranscriptStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

func newTranscriptID() string {
	return "tr_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// validateID rejects IDs that could escape the transcript directory.
func validateID(id string) error {
	if id == "" || len(id) > 128 {
		return ErrInvalidID
	}
	for _, r := range id {
		ok := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return ErrInvalidID
		}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrTranscriptNotFound is returned when a transcript doesn't exist.
// Use errors.Is(err, ErrTranscriptNotFound) to check for this error.
var ErrTranscriptNotFound = &TranscriptError{Message: "transcript not found"}

// ErrInvalidID is returned for IDs containing anything but letters, digits,
// '-' and '_'.
var ErrInvalidID = &TranscriptError{Message: "invalid transcript id"}

// TranscriptError represents a transcript-related error.
type TranscriptError struct {
	Message string
}

// Error implements the error interface.
func (e *TranscriptError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing transcript errors.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LISTING FORMAT
// =============================================================================

// FormatList formats transcripts as a table for the sessions command.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved transcripts."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + util.PadRight("ID", 20) + util.PadRight("Updated", 18) +
		util.PadRight("Msgs", 6) + "Summary\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	for i, m := range metas {
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) +
			util.PadRight(util.TruncateWidth(m.ID, 19), 20) +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18) +
			util.PadRight(strconv.Itoa(m.MessageCount), 6) +
			util.TruncateWidth(m.Summary, 40) + "\n")
	}
	return sb.String()
}
