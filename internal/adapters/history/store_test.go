package history

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStore_Backends(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		backend string
		path    string
		want    string // "sqlite", "json", "nil", or "error"
	}{
		{"default is sqlite", "", filepath.Join(tmpDir, "a"), "sqlite"},
		{"explicit sqlite", "sqlite", filepath.Join(tmpDir, "b"), "sqlite"},
		{"case insensitive", "SQLite", filepath.Join(tmpDir, "c"), "sqlite"},
		{"json", "json", filepath.Join(tmpDir, "d"), "json"},
		{"off", "off", "", "nil"},
		{"unknown", "redis", "", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(Options{Backend: tt.backend, Path: tt.path})
			if store != nil {
				defer store.Close()
			}

			switch tt.want {
			case "sqlite":
				if err != nil {
					t.Fatalf("NewStore() error = %v", err)
				}
				if _, ok := store.(*SQLiteStore); !ok {
					t.Errorf("NewStore() = %T, want *SQLiteStore", store)
				}
			case "json":
				if err != nil {
					t.Fatalf("NewStore() error = %v", err)
				}
				if _, ok := store.(*JSONStore); !ok {
					t.Errorf("NewStore() = %T, want *JSONStore", store)
				}
			case "nil":
				if err != nil {
					t.Fatalf("NewStore() error = %v", err)
				}
				if store != nil {
					t.Errorf("NewStore() = %T, want nil for off backend", store)
				}
			case "error":
				if err == nil {
					t.Error("NewStore() should fail for unknown backend")
				}
			}
		})
	}
}

func TestNewStore_NormalizesExtensions(t *testing.T) {
	tmpDir := t.TempDir()

	// A sqlite-default path handed to the json backend swaps extensions
	// instead of writing JSON into a .db file.
	store, err := NewStore(Options{
		Backend: BackendJSON,
		Path:    filepath.Join(tmpDir, "history.db"),
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	js, ok := store.(*JSONStore)
	if !ok {
		t.Fatalf("NewStore() = %T, want *JSONStore", store)
	}
	if !strings.HasSuffix(js.Path(), "history.json") {
		t.Errorf("Path() = %s, want .json extension", js.Path())
	}

	sq, err := NewStore(Options{
		Backend: BackendSQLite,
		Path:    filepath.Join(tmpDir, "history.json"),
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer sq.Close()
	if !strings.HasSuffix(sq.(*SQLiteStore).dbPath, "history.db") {
		t.Errorf("dbPath = %s, want .db extension", sq.(*SQLiteStore).dbPath)
	}
}

func TestCloseStore_NilStore(t *testing.T) {
	if err := CloseStore(nil); err != nil {
		t.Errorf("CloseStore(nil) error = %v", err)
	}
}
