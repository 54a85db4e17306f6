package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conclave-ai/conclave/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_outcomes.sql
var migrationV1 string

// SQLiteStore implements HistoryStore with a local SQLite database. *sql.DB
// is safe for concurrent use and every write runs in its own transaction, so
// the store needs no additional locking.
type SQLiteStore struct {
	dbPath     string
	maxEntries int
	db         *sql.DB
}

// SQLiteStoreOption configures the store.
type SQLiteStoreOption func(*SQLiteStore)

// WithSQLiteMaxEntries caps the number of retained records. Zero or negative
// disables pruning.
func WithSQLiteMaxEntries(n int) SQLiteStoreOption {
	return func(s *SQLiteStore) {
		s.maxEntries = n
	}
}

// NewSQLiteStore opens the database at dbPath, creating the file and parent
// directory if needed, and runs pending migrations.
func NewSQLiteStore(dbPath string, opts ...SQLiteStoreOption) (*SQLiteStore, error) {
	s := &SQLiteStore{dbPath: dbPath}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// migrate runs pending migrations.
func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, start from scratch.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const outcomeColumns = `request_id, session_id, mode, prompt, final_text, confidence,
	method, threshold_met, contributing, omitted, latency_ms, created_at`

// SaveOutcome upserts one record and prunes past the entry cap in the same
// transaction.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, rec *core.OutcomeRecord) error {
	if rec == nil || rec.RequestID == "" {
		return fmt.Errorf("outcome record needs a request ID")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes (
			request_id, session_id, mode, prompt, final_text, confidence,
			method, threshold_met, contributing, omitted, latency_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			session_id = excluded.session_id,
			mode = excluded.mode,
			prompt = excluded.prompt,
			final_text = excluded.final_text,
			confidence = excluded.confidence,
			method = excluded.method,
			threshold_met = excluded.threshold_met,
			contributing = excluded.contributing,
			omitted = excluded.omitted,
			latency_ms = excluded.latency_ms,
			created_at = excluded.created_at
	`,
		rec.RequestID, rec.SessionID, string(rec.Mode), rec.Prompt,
		rec.FinalText, rec.Confidence, rec.Method, boolToInt(rec.ThresholdMet),
		rec.Contributing, rec.Omitted, rec.LatencyMs, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting outcome: %w", err)
	}

	if s.maxEntries > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM outcomes WHERE rowid NOT IN (
				SELECT rowid FROM outcomes
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			)
		`, s.maxEntries)
		if err != nil {
			return fmt.Errorf("pruning outcomes: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetOutcome returns the record for a request ID, or nil if absent.
func (s *SQLiteStore) GetOutcome(ctx context.Context, requestID string) (*core.OutcomeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes WHERE request_id = ?", requestID)
	rec, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading outcome: %w", err)
	}
	return rec, nil
}

// ListOutcomes returns the most recent records, newest first. Ties on
// created_at fall back to insertion order.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, limit int) ([]*core.OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outcomeColumns+`
		FROM outcomes
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// RecentForSession returns the most recent records for a session, newest
// first.
func (s *SQLiteStore) RecentForSession(ctx context.Context, sessionID string, limit int) ([]*core.OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outcomeColumns+`
		FROM outcomes
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, sessionID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing session outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

func collectOutcomes(rows *sql.Rows) ([]*core.OutcomeRecord, error) {
	var recs []*core.OutcomeRecord
	for rows.Next() {
		rec, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return recs, nil
}

func scanOutcome(row interface{ Scan(...any) error }) (*core.OutcomeRecord, error) {
	var rec core.OutcomeRecord
	var mode string
	var thresholdMet int

	err := row.Scan(
		&rec.RequestID, &rec.SessionID, &mode, &rec.Prompt, &rec.FinalText,
		&rec.Confidence, &rec.Method, &thresholdMet, &rec.Contributing,
		&rec.Omitted, &rec.LatencyMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Mode = core.Mode(mode)
	rec.ThresholdMet = thresholdMet != 0
	return &rec, nil
}

// Convert bool to SQLite integer (0/1).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Verify that SQLiteStore implements core.HistoryStore.
var _ core.HistoryStore = (*SQLiteStore)(nil)
