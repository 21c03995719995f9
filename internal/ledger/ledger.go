// Package ledger keeps the day-scoped attendance record. Each identity is
// marked at most once per calendar date; entries are append-only and are
// flushed incrementally to a tabular store so a crash loses at most the
// current unit of work.
package ledger

import (
	"context"
	"fmt"
	"time"
)

// DefaultDateFormat is the date key layout used when none is configured.
const DefaultDateFormat = "2006-01-02"

// Entry is one attendance record: who was marked, and when.
type Entry struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
}

// Outcome is the result of a MarkPresent call.
type Outcome int

const (
	// Marked means a new entry was appended.
	Marked Outcome = iota
	// AlreadyMarked means the id was recorded earlier for this date and
	// nothing changed.
	AlreadyMarked
)

func (o Outcome) String() string {
	switch o {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already marked"
	default:
		return "unknown"
	}
}

// Store is the external tabular sink the ledger persists to, keyed by
// date. AppendEntries must be idempotent per (date, id) so a retried
// flush never duplicates rows.
type Store interface {
	LoadEntries(ctx context.Context, dateKey string) ([]Entry, error)
	AppendEntries(ctx context.Context, dateKey string, entries []Entry) error
}

// Snapshot is a read-only copy of the ledger state for report generation.
type Snapshot struct {
	DateKey   string
	MarkedIDs map[string]bool
	Entries   []Entry
}

// Ledger is the attendance record for a single date. It exclusively owns
// its entry sequence and marked-id set. Not safe for concurrent mutation;
// a session processes detections sequentially (single-writer discipline).
type Ledger struct {
	store     Store
	dateKey   string
	entries   []Entry
	marked    map[string]bool
	persisted int
}

// Open loads the ledger for the given date key, reconstructing the
// marked-id set from previously persisted entries so a new run for the
// same day does not re-mark identities recorded by an earlier run.
func Open(ctx context.Context, store Store, dateKey string) (*Ledger, error) {
	existing, err := store.LoadEntries(ctx, dateKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger for %s: %w", dateKey, err)
	}

	l := &Ledger{
		store:     store,
		dateKey:   dateKey,
		entries:   existing,
		marked:    make(map[string]bool, len(existing)),
		persisted: len(existing),
	}
	for _, e := range existing {
		l.marked[e.ID] = true
	}
	return l, nil
}

// DateKey returns the date this ledger is scoped to.
func (l *Ledger) DateKey() string {
	return l.dateKey
}

// MarkPresent records the identity for this date. The call is idempotent:
// repeated invocations with the same id return AlreadyMarked and leave
// exactly one entry.
func (l *Ledger) MarkPresent(id, displayName string, now time.Time) Outcome {
	if l.marked[id] {
		return AlreadyMarked
	}
	l.entries = append(l.entries, Entry{ID: id, DisplayName: displayName, Timestamp: now})
	l.marked[id] = true
	return Marked
}

// Dirty reports whether entries exist that have not been persisted yet.
func (l *Ledger) Dirty() bool {
	return l.persisted < len(l.entries)
}

// Persist flushes unsaved entries to the store. A store failure is
// returned to the caller and the entries stay queued for the next
// attempt; they are never silently dropped.
func (l *Ledger) Persist(ctx context.Context) error {
	if !l.Dirty() {
		return nil
	}
	pending := l.entries[l.persisted:]
	if err := l.store.AppendEntries(ctx, l.dateKey, pending); err != nil {
		return fmt.Errorf("persist ledger for %s (%d unsaved entries): %w", l.dateKey, len(pending), err)
	}
	l.persisted = len(l.entries)
	return nil
}

// Snapshot returns a read-only copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	marked := make(map[string]bool, len(l.marked))
	for id := range l.marked {
		marked[id] = true
	}
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return Snapshot{DateKey: l.dateKey, MarkedIDs: marked, Entries: entries}
}
