// Package roster holds the per-course records of a run and the pending
// working set derived from them.
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seatsniper/seatsniper/internal/domain"
)

// ErrEmpty is returned when a roster would start with no courses
var ErrEmpty = errors.New("roster: no courses")

// Roster is the Course Record Store. Records are kept in insertion order and
// never deleted; only their status is overwritten. The pending list is always
// a subset of the record keys and only ever shrinks.
//
// Roster is not safe for concurrent use; the engine owns it exclusively.
type Roster struct {
	order   []domain.CourseID
	records map[domain.CourseID]*domain.CourseRecord
	pending []domain.CourseID
}

// New creates a roster with every id pending. Duplicates are dropped,
// keeping the first occurrence.
func New(ids []domain.CourseID) (*Roster, error) {
	r := &Roster{
		records: make(map[domain.CourseID]*domain.CourseRecord, len(ids)),
	}

	for _, id := range ids {
		if strings.TrimSpace(string(id)) == "" {
			return nil, fmt.Errorf("roster: blank course id")
		}
		if _, ok := r.records[id]; ok {
			continue
		}
		r.records[id] = &domain.CourseRecord{ID: id}
		r.order = append(r.order, id)
		r.pending = append(r.pending, id)
	}

	if len(r.order) == 0 {
		return nil, ErrEmpty
	}
	return r, nil
}

// Pending returns a snapshot of the ids still being pursued
func (r *Roster) Pending() []domain.CourseID {
	out := make([]domain.CourseID, len(r.pending))
	copy(out, r.pending)
	return out
}

// PendingCount returns how many courses are still pending
func (r *Roster) PendingCount() int {
	return len(r.pending)
}

// IsPending reports whether id is still in the working set
func (r *Roster) IsPending(id domain.CourseID) bool {
	for _, p := range r.pending {
		if p == id {
			return true
		}
	}
	return false
}

// SetName fills in a display name the first time one is seen
func (r *Roster) SetName(id domain.CourseID, name string) {
	rec, ok := r.records[id]
	if !ok || rec.DisplayName != "" {
		return
	}
	rec.DisplayName = strings.TrimSpace(name)
}

// Record overwrites the status of a course and returns the updated record
func (r *Roster) Record(id domain.CourseID, outcome domain.Outcome) (domain.CourseRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return domain.CourseRecord{}, fmt.Errorf("roster: unknown course %q", id)
	}
	rec.Status = outcome
	return *rec, nil
}

// Prune removes the given ids from the pending list. It is called once per
// phase with the ids resolved during that phase, never while iterating.
func (r *Roster) Prune(resolved []domain.CourseID) {
	if len(resolved) == 0 {
		return
	}
	drop := make(map[domain.CourseID]struct{}, len(resolved))
	for _, id := range resolved {
		drop[id] = struct{}{}
	}

	kept := r.pending[:0]
	for _, id := range r.pending {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	r.pending = kept
}

// Get returns a copy of one record
func (r *Roster) Get(id domain.CourseID) (domain.CourseRecord, bool) {
	rec, ok := r.records[id]
	if !ok {
		return domain.CourseRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all records in insertion order
func (r *Roster) Records() []domain.CourseRecord {
	out := make([]domain.CourseRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// Len returns the number of courses tracked
func (r *Roster) Len() int {
	return len(r.order)
}
