package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
)

// JSONStore implements HistoryStore with a single JSON file rewritten
// atomically on every save. Records are held in memory between writes, so
// reads never touch the disk after construction.
type JSONStore struct {
	path       string
	maxEntries int

	mu      sync.RWMutex
	records []*core.OutcomeRecord // oldest saved first
}

// JSONStoreOption configures the store.
type JSONStoreOption func(*JSONStore)

// WithJSONMaxEntries caps the number of retained records. Zero or negative
// disables pruning.
func WithJSONMaxEntries(n int) JSONStoreOption {
	return func(s *JSONStore) {
		s.maxEntries = n
	}
}

// historyEnvelope wraps records with file metadata.
type historyEnvelope struct {
	Version   int                   `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
	Records   []*core.OutcomeRecord `json:"records"`
}

// NewJSONStore creates a JSON store backed by path, loading any existing
// records. A missing file is fine; a file that exists but cannot be parsed is
// an error so corruption surfaces at startup rather than as silent data loss.
func NewJSONStore(path string, opts ...JSONStoreOption) (*JSONStore, error) {
	s := &JSONStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading history file: %w", err)
	}

	var envelope historyEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parsing history file %s: %w", s.path, err)
	}
	s.records = envelope.Records
	return nil
}

// SaveOutcome appends or replaces one record and rewrites the file. When the
// entry cap is exceeded the oldest saved records are dropped first.
func (s *JSONStore) SaveOutcome(_ context.Context, rec *core.OutcomeRecord) error {
	if rec == nil || rec.RequestID == "" {
		return fmt.Errorf("outcome record needs a request ID")
	}
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, existing := range s.records {
		if existing.RequestID == stored.RequestID {
			s.records[i] = &stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.records = append(s.records, &stored)
	}
	if s.maxEntries > 0 && len(s.records) > s.maxEntries {
		s.records = s.records[len(s.records)-s.maxEntries:]
	}

	return s.flushLocked()
}

func (s *JSONStore) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	envelope := historyEnvelope{
		Version:   1,
		UpdatedAt: time.Now(),
		Records:   s.records,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := atomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	return nil
}

// GetOutcome returns the record for a request ID, or nil if absent.
func (s *JSONStore) GetOutcome(_ context.Context, requestID string) (*core.OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.RequestID == requestID {
			c := *rec
			return &c, nil
		}
	}
	return nil, nil
}

// ListOutcomes returns the most recent records, newest first.
func (s *JSONStore) ListOutcomes(_ context.Context, limit int) ([]*core.OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return takeRecords(s.newestFirstLocked(), normalizeLimit(limit), nil), nil
}

// RecentForSession returns the most recent records for a session, newest
// first.
func (s *JSONStore) RecentForSession(_ context.Context, sessionID string, limit int) ([]*core.OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return takeRecords(s.newestFirstLocked(), normalizeLimit(limit), func(rec *core.OutcomeRecord) bool {
		return rec.SessionID == sessionID
	}), nil
}

// Close releases nothing: every save already flushed to disk.
func (s *JSONStore) Close() error {
	return nil
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// newestFirstLocked orders records by created_at descending. Ties keep the
// later-saved record first, mirroring the SQLite backend's rowid tie-break.
func (s *JSONStore) newestFirstLocked() []*core.OutcomeRecord {
	out := make([]*core.OutcomeRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func takeRecords(recs []*core.OutcomeRecord, limit int, keep func(*core.OutcomeRecord) bool) []*core.OutcomeRecord {
	var out []*core.OutcomeRecord
	for _, rec := range recs {
		if keep != nil && !keep(rec) {
			continue
		}
		c := *rec
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Verify that JSONStore implements core.HistoryStore.
var _ core.HistoryStore = (*JSONStore)(nil)
