// Package state persists the mapping between Claude Code session IDs and
// DevMetrics dashboard session IDs across hook invocations.
//
// The store is fail-soft: loads fall back to an empty document and saves
// swallow errors. Concurrent hook invocations race on the file with
// last-write-wins semantics.
package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Record tracks one active session. The JSON keys are a fixed on-disk
// contract shared with older hook versions.
type Record struct {
	DashboardID    string  `json:"dashboard_id,omitempty"`
	StartTimestamp float64 `json:"start_timestamp,omitempty"` // Unix seconds
	ProjectName    string  `json:"project_name,omitempty"`
	Cwd            string  `json:"cwd,omitempty"`
}

// StartTime converts the stored Unix timestamp back to wall-clock time.
// It returns the zero time when no start was recorded.
func (r Record) StartTime() time.Time {
	if r.StartTimestamp <= 0 {
		return time.Time{}
	}
	sec := int64(r.StartTimestamp)
	nsec := int64((r.StartTimestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

type State struct {
	Sessions map[string]Record `json:"sessions"`
	// ProcessedEntries is carried in the document for compatibility but is
	// not read by any handler.
	ProcessedEntries []string `json:"processed_entries"`
}

func empty() *State {
	return &State{
		Sessions:         map[string]Record{},
		ProcessedEntries: []string{},
	}
}

// Store reads and writes the state document at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Load returns the persisted state, or the empty default if the file is
// missing, unreadable, or malformed.
func (s *Store) Load() *State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("failed to read state", "path", s.path, "error", err)
		}
		return empty()
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Debug("failed to parse state", "path", s.path, "error", err)
		return empty()
	}
	if st.Sessions == nil {
		st.Sessions = map[string]Record{}
	}
	if st.ProcessedEntries == nil {
		st.ProcessedEntries = []string{}
	}
	return &st
}

// Save writes the full document, creating the parent directory if needed.
// Failures are logged and swallowed.
func (s *Store) Save(st *State) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Debug("failed to encode state", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Debug("failed to create state dir", "path", s.path, "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Debug("failed to write state", "path", s.path, "error", err)
	}
}

// Path returns the state file location, for diagnostics.
func (s *Store) Path() string {
	return s.path
}
