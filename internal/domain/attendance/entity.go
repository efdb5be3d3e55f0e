package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

type EntryType string

const (
	EntryTypeTimeIn  EntryType = "TIME_IN"
	EntryTypeTimeOut EntryType = "TIME_OUT"
)

// RawEntry is a single clock event as received from the attendance API.
// EventTime keeps the original text; Timestamp is its resolved instant.
type RawEntry struct {
	Type             EntryType
	EventTime        string
	Timestamp        time.Time
	FormattedDisplay string

	// Set by the normalizer when no instant could be resolved.
	Malformed bool
}

// DailyRecord is one calendar day of attendance. TimeIn/TimeOut and the
// scheduled bounds are "HH:MM[:SS]" strings or the "-" placeholder.
type DailyRecord struct {
	Date         string // YYYY-MM-DD
	Day          string
	Status       string
	TimeIn       string
	TimeOut      string
	ScheduledIn  string
	ScheduledOut string
	Entries      []RawEntry

	// Set by the normalizer when Date is not a valid YYYY-MM-DD.
	Malformed bool
}

type MergeRole string

const (
	MergeRoleStandalone          MergeRole = "standalone"
	MergeRoleNightShiftHead      MergeRole = "nightshift_head"
	MergeRoleNightShiftCompanion MergeRole = "nightshift_companion"
	MergeRoleIncomplete          MergeRole = "incomplete"
)

// MergedShiftRecord is a DailyRecord prepared for display after night shifts
// spanning midnight have been stitched together. It is rebuilt on every refresh.
type MergedShiftRecord struct {
	DailyRecord

	Role                         MergeRole
	IsNightShift                 bool
	IsIncomplete                 bool
	HasPreviousNightshiftTimeout bool
	ConsumedNextDayTimeout       *RawEntry
	DisplayTimeIn                string
	DisplayTimeOut               string
	DisplayDateRange             string
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// Session is a paired TIME_IN/TIME_OUT. TimeOut is nil while active.
type Session struct {
	Date          string
	TimeIn        time.Time
	TimeOut       *time.Time
	Duration      time.Duration
	Status        SessionStatus
	Clamped       bool // negative duration reset to zero
	SpansMidnight bool
}

// ActiveSession is the API's view of the currently open session.
type ActiveSession struct {
	StartTime       time.Time
	CurrentDuration time.Duration
	IsOvertime      bool
}

// Snapshot is the latest fetched state for one employee. Derived views are
// recomputed from it wholesale and never mutate it.
type Snapshot struct {
	EmployeeID         string
	Records            []DailyRecord
	Schedule           *schedule.Schedule
	ScheduleLoadFailed bool
	ActiveSession      *ActiveSession
	FetchedAt          time.Time
	Generation         uint64
}

// HasActiveSession reports whether an open TIME_IN exists.
func (s Snapshot) HasActiveSession() bool {
	return s.ActiveSession != nil
}
