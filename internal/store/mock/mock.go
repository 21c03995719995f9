// Package mock provides in-memory implementations of the store
// interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// LedgerStore is an in-memory ledger.Store with error injection.
type LedgerStore struct {
	mu      sync.Mutex
	entries map[string][]ledger.Entry

	// Error injection
	LoadError   error
	AppendError error

	// Call counters
	AppendCalls int
}

// NewLedgerStore creates an empty in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{entries: make(map[string][]ledger.Entry)}
}

// Seed pre-populates entries for a date key.
func (s *LedgerStore) Seed(dateKey string, entries []ledger.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[dateKey] = append(s.entries[dateKey], entries...)
}

// Entries returns a copy of the stored entries for a date key.
func (s *LedgerStore) Entries(dateKey string) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Entry, len(s.entries[dateKey]))
	copy(out, s.entries[dateKey])
	return out
}

// LoadEntries implements ledger.Store.
func (s *LedgerStore) LoadEntries(ctx context.Context, dateKey string) ([]ledger.Entry, error) {
	if s.LoadError != nil {
		return nil, s.LoadError
	}
	return s.Entries(dateKey), nil
}

// AppendEntries implements ledger.Store. Duplicate (date, id) pairs are
// ignored, matching the idempotent behavior of the SQL sinks.
func (s *LedgerStore) AppendEntries(ctx context.Context, dateKey string, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppendCalls++
	if s.AppendError != nil {
		return s.AppendError
	}

	seen := make(map[string]bool, len(s.entries[dateKey]))
	for _, e := range s.entries[dateKey] {
		seen[e.ID] = true
	}
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		s.entries[dateKey] = append(s.entries[dateKey], e)
		seen[e.ID] = true
	}
	return nil
}

// RosterSource is an in-memory roster.Source with error injection.
type RosterSource struct {
	Records   []roster.Record
	ListError error
}

// ListRecords implements roster.Source.
func (s *RosterSource) ListRecords(ctx context.Context) ([]roster.Record, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	out := make([]roster.Record, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
