// Package ledger records which (message, decision-version) pairs have
// already had an action applied, so repeated deliveries of the same message
// never trigger a second side effect.
package ledger

import "sync"

// Store is the capability set the decision pipeline needs from a ledger.
// IsApplied is a pure lookup; MarkApplied is idempotent, so marking the
// same key twice is not an error.
type Store interface {
	IsApplied(messageID, decisionVersion string) (bool, error)
	MarkApplied(messageID, decisionVersion string) error
}

type key struct {
	messageID       string
	decisionVersion string
}

// MemoryStore keeps applied keys in process memory. Entries are lost on
// restart; use SQLiteStore when duplicates must be suppressed across runs.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[key]struct{}
}

// NewMemoryStore creates an empty in-process ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[key]struct{})}
}

// IsApplied reports whether the pair has been marked in this process.
func (s *MemoryStore) IsApplied(messageID, decisionVersion string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key{messageID, decisionVersion}]
	return ok, nil
}

// MarkApplied records the pair. Marking an already-marked pair is a no-op.
func (s *MemoryStore) MarkApplied(messageID, decisionVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key{messageID, decisionVersion}] = struct{}{}
	return nil
}
