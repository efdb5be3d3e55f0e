// Package snapshot keeps the latest fetched attendance state per employee.
//
// Fetches take a generation ticket before they start. A result is committed
// only if no newer ticket for the same part has been committed already, so a
// slow poll that finishes after a newer one can never overwrite fresher data.
package snapshot

import (
	"sort"
	"sync"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
)

// Part is an independently fetched slice of a snapshot.
type Part int

const (
	PartRecords  Part = iota // daily records and active session
	PartSchedule             // today's schedule
)

func (p Part) String() string {
	switch p {
	case PartRecords:
		return "records"
	case PartSchedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// Ticket identifies one in-flight fetch.
type Ticket struct {
	EmployeeID string
	Part       Part
	Generation uint64
}

type entry struct {
	snap      attendance.Snapshot
	committed map[Part]uint64
	stale     bool
	tracked   bool
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	next     uint64
	entries  map[string]*entry
	onCommit func(employeeID string, snap attendance.Snapshot)
}

// NewStore creates a store. onCommit, if not nil, runs after every accepted
// commit, outside the store lock.
func NewStore(onCommit func(employeeID string, snap attendance.Snapshot)) *Store {
	return &Store{
		entries:  make(map[string]*entry),
		onCommit: onCommit,
	}
}

// Begin hands out a ticket for a fetch that is about to start.
func (s *Store) Begin(employeeID string, part Part) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.entryLocked(employeeID)
	return Ticket{EmployeeID: employeeID, Part: part, Generation: s.next}
}

// Commit applies a fetch result. It returns false, leaving the snapshot
// untouched, when a newer fetch of the same part has already been committed.
func (s *Store) Commit(t Ticket, apply func(snap *attendance.Snapshot)) (attendance.Snapshot, bool) {
	s.mu.Lock()
	e := s.entryLocked(t.EmployeeID)
	if e.committed[t.Part] >= t.Generation {
		snap := e.snap
		s.mu.Unlock()
		return snap, false
	}

	apply(&e.snap)
	e.snap.EmployeeID = t.EmployeeID
	e.committed[t.Part] = t.Generation
	if t.Generation > e.snap.Generation {
		e.snap.Generation = t.Generation
	}
	e.stale = false
	snap := e.snap
	s.mu.Unlock()

	if s.onCommit != nil {
		s.onCommit(t.EmployeeID, snap)
	}
	return snap, true
}

// Get returns the latest snapshot. ok is false when nothing has been
// committed yet or the snapshot was invalidated.
func (s *Store) Get(employeeID string) (attendance.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.entries[employeeID]
	if !found || len(e.committed) == 0 {
		return attendance.Snapshot{}, false
	}
	return e.snap, !e.stale
}

// Track registers an employee so pollers refresh it. Snapshots built only by
// on-demand reads are not polled.
func (s *Store) Track(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(employeeID).tracked = true
}

// Invalidate marks the snapshot stale so the next read refetches it.
func (s *Store) Invalidate(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, found := s.entries[employeeID]; found {
		e.stale = true
	}
}

// Forget drops an employee and their snapshot.
func (s *Store) Forget(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, employeeID)
}

// Employees lists tracked employees in a stable order.
func (s *Store) Employees() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.tracked {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) entryLocked(employeeID string) *entry {
	e, found := s.entries[employeeID]
	if !found {
		e = &entry{committed: make(map[Part]uint64)}
		s.entries[employeeID] = e
	}
	return e
}
