// Package report derives present and absent identity lists from a roster
// and a ledger snapshot. Both functions are pure and total over their
// inputs: every roster id lands in exactly one of the two lists.
package report

import (
	"sort"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Person is one roster identity in a report.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// FromRecords converts raw roster records to report people. Identities
// without an embedding still belong on the roster side of a report.
func FromRecords(records []roster.Record) []Person {
	people := make([]Person, 0, len(records))
	for _, rec := range records {
		people = append(people, Person{ID: rec.ID, DisplayName: rec.DisplayName})
	}
	return people
}

// Present returns the roster identities marked in the snapshot, sorted by id.
func Present(people []Person, snap ledger.Snapshot) []Person {
	out := make([]Person, 0, len(snap.MarkedIDs))
	for _, p := range people {
		if snap.MarkedIDs[p.ID] {
			out = append(out, p)
		}
	}
	sortByID(out)
	return out
}

// Absent returns the roster identities not marked in the snapshot, sorted by id.
func Absent(people []Person, snap ledger.Snapshot) []Person {
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if !snap.MarkedIDs[p.ID] {
			out = append(out, p)
		}
	}
	sortByID(out)
	return out
}

func sortByID(people []Person) {
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
}
