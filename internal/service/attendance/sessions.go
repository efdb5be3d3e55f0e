package attendance

import (
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
)

// BuildSessions pairs chronologically sorted entries into work sessions.
// A TIME_IN opens a session; a still-open session is emitted as ACTIVE first.
// A TIME_OUT closes the open session. TIME_OUTs without an open session and
// malformed entries are dropped. A trailing TIME_IN is emitted as ACTIVE.
func BuildSessions(entries []attendance.RawEntry) []attendance.Session {
	sessions := make([]attendance.Session, 0, len(entries)/2+1)
	var open *attendance.RawEntry

	for _, e := range entries {
		if e.Malformed {
			continue
		}
		switch e.Type {
		case attendance.EntryTypeTimeIn:
			if open != nil {
				sessions = append(sessions, activeSession(*open))
			}
			entry := e
			open = &entry
		case attendance.EntryTypeTimeOut:
			if open == nil {
				slog.Debug("Dropping time_out without open session", "event_time", e.EventTime)
				continue
			}
			sessions = append(sessions, completedSession(*open, e))
			open = nil
		}
	}

	if open != nil {
		sessions = append(sessions, activeSession(*open))
	}
	return sessions
}

// SessionsFromRecords flattens, sorts and pairs the entries of day records.
func SessionsFromRecords(records []attendance.DailyRecord, loc *time.Location) []attendance.Session {
	return BuildSessions(SortEntries(FlattenEntries(SortDailyRecords(records), loc), loc))
}

func activeSession(in attendance.RawEntry) attendance.Session {
	return attendance.Session{
		Date:   in.Timestamp.Format(dateLayout),
		TimeIn: in.Timestamp,
		Status: attendance.SessionStatusActive,
	}
}

func completedSession(in, out attendance.RawEntry) attendance.Session {
	timeOut := out.Timestamp
	s := attendance.Session{
		Date:          in.Timestamp.Format(dateLayout),
		TimeIn:        in.Timestamp,
		TimeOut:       &timeOut,
		Duration:      out.Timestamp.Sub(in.Timestamp),
		Status:        attendance.SessionStatusCompleted,
		SpansMidnight: !sameDay(in.Timestamp, out.Timestamp),
	}
	if s.Duration < 0 {
		slog.Warn("Clamping negative session duration", "time_in", in.EventTime, "time_out", out.EventTime)
		s.Duration = 0
		s.Clamped = true
	}
	return s
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
