// Package history persists completed request outcomes. Two backends implement
// the same store port: a SQLite database and an atomically rewritten JSON
// file. Both prune to a configurable entry cap so long-lived sessions do not
// grow without bound.
package history

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conclave-ai/conclave/internal/core"
)

// Supported backend names. These match the values accepted by the
// history.backend configuration key.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendOff    = "off"
)

const (
	defaultSQLitePath = ".conclave/history.db"
	defaultJSONPath   = ".conclave/history.json"

	// defaultListLimit applies when a caller passes a non-positive limit.
	defaultListLimit = 50
)

// Options configures store creation.
type Options struct {
	// Backend selects the storage backend. Empty defaults to SQLite.
	Backend string

	// Path is the backing file. If empty, a backend default under
	// .conclave/ is used.
	Path string

	// MaxEntries caps the number of retained records; the oldest are
	// pruned once the cap is exceeded. Zero or negative keeps everything.
	MaxEntries int
}

// NewStore creates a HistoryStore for the configured backend. The off backend
// returns a nil store: the engine treats a nil history as disabled
// persistence.
func NewStore(opts Options) (core.HistoryStore, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	switch backend {
	case "", BackendSQLite:
		path := opts.Path
		if path == "" {
			path = defaultSQLitePath
		}
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path, WithSQLiteMaxEntries(opts.MaxEntries))
	case BackendJSON:
		path := opts.Path
		if path == "" {
			path = defaultJSONPath
		}
		if !strings.HasSuffix(path, ".json") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		}
		return NewJSONStore(path, WithJSONMaxEntries(opts.MaxEntries))
	case BackendOff:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}

// CloseStore closes a store, tolerating the nil store returned for the off
// backend.
func CloseStore(s core.HistoryStore) error {
	if s == nil {
		return nil
	}
	return s.Close()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
