// Package history keeps a newest-first log of every invocation attempt in a
// single human-inspectable JSON file.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grabbit-dl/grabbit/internal/platform"
)

// Record describes one invocation and its outcome. Records are never mutated
// after creation.
type Record struct {
	Timestamp string            `json:"timestamp"`
	URL       string            `json:"url"`
	Platform  platform.Platform `json:"platform"`
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Payload   map[string]any    `json:"payload,omitempty"`
}

// Store is the full history, held in memory and rewritten to the backing
// file on every mutation. Access is mutex-serialized so concurrent web
// sessions cannot lose updates to the full-rewrite strategy.
type Store struct {
	path string

	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

// Open loads the store from path. A missing or unparseable file initializes
// an empty history; loading never fails the process.
func Open(path string) *Store {
	s := &Store{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return s
	}
	s.records = records
	return s
}

// Record appends a new entry at the front and persists the whole sequence.
// Failures are recorded the same as successes.
func (s *Store) Record(url string, p platform.Platform, result platform.Result) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		URL:       url,
		Platform:  p,
		Success:   result.Success,
		Message:   result.Message,
		Payload:   result.Payload,
	}
	s.records = append([]Record{rec}, s.records...)
	if err := s.rewrite(); err != nil {
		return rec, err
	}
	return rec, nil
}

// List returns at most limit of the newest records, or all when limit <= 0.
func (s *Store) List(limit int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, n)
	copy(out, s.records[:n])
	return out
}

// Clear empties the history and rewrites the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return s.rewrite()
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// rewrite replaces the backing file wholesale. The write goes through a temp
// file in the same directory and an atomic rename so a crash mid-write never
// leaves a corrupt history behind.
func (s *Store) rewrite() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	records := s.records
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}
