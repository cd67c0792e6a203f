package ledger

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const appliedActionsSchema = `
CREATE TABLE IF NOT EXISTS triage_applied_actions (
    message_id       TEXT NOT NULL,
    decision_version TEXT NOT NULL,
    applied_at       TEXT NOT NULL,
    PRIMARY KEY (message_id, decision_version)
);
`

// SQLiteStore persists applied keys in a single-table embedded database.
// Writes use INSERT OR IGNORE, so concurrent or repeated MarkApplied calls
// for the same key are no-ops after the first.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the ledger database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if _, err := db.Exec(appliedActionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// IsApplied reports whether the pair has a recorded ledger entry.
func (s *SQLiteStore) IsApplied(messageID, decisionVersion string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM triage_applied_actions
		WHERE message_id = ? AND decision_version = ?`,
		messageID, decisionVersion,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// MarkApplied inserts a ledger entry for the pair if absent.
func (s *SQLiteStore) MarkApplied(messageID, decisionVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO triage_applied_actions
		(message_id, decision_version, applied_at)
		VALUES (?, ?, ?)`,
		messageID, decisionVersion, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
