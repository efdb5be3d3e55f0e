package attendance

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/shift"
)

// MergeNightShifts reconstructs display records from day-by-day attendance.
//
// A night-shift day whose time_in has no time_out is joined with the next
// day's early time_out (before shift.EarlyTimeoutCutoffHour). The pair is
// emitted as a head record and a companion record. Without such a time_out the
// day is emitted as incomplete and the next day is processed on its own.
// Every input record is emitted exactly once.
func MergeNightShifts(records []attendance.DailyRecord) []attendance.MergedShiftRecord {
	sorted := SortDailyRecords(records)
	merged := make([]attendance.MergedShiftRecord, 0, len(sorted))

	for i := 0; i < len(sorted); {
		rec := sorted[i]

		if isNightShiftRecord(rec) && hasTimeInNoTimeOut(rec) {
			if i+1 < len(sorted) && isNextDay(rec, sorted[i+1]) {
				next := sorted[i+1]
				if timeout, ok := findEarlyTimeout(next); ok {
					merged = append(merged, nightShiftHead(rec, next, timeout), nightShiftCompanion(next))
					i += 2
					continue
				}
			}
			merged = append(merged, incompleteRecord(rec))
			i++
			continue
		}

		merged = append(merged, standaloneRecord(rec))
		i++
	}

	return merged
}

// isNightShiftRecord classifies a record by its scheduled window. Malformed
// bounds degrade to a regular day.
func isNightShiftRecord(rec attendance.DailyRecord) bool {
	if shift.IsPlaceholder(rec.ScheduledIn) || shift.IsPlaceholder(rec.ScheduledOut) {
		return false
	}
	night, err := shift.ClassifyStrings(rec.ScheduledIn, rec.ScheduledOut)
	if err != nil {
		slog.Debug("Treating record as regular day", "date", rec.Date, "error", err)
		return false
	}
	return night
}

func hasTimeInNoTimeOut(rec attendance.DailyRecord) bool {
	in, out := recordTimes(rec)
	return !shift.IsPlaceholder(in) && shift.IsPlaceholder(out)
}

// recordTimes returns the record's time_in and time_out, falling back to its
// entries when the top-level time_in is missing.
func recordTimes(rec attendance.DailyRecord) (string, string) {
	if !shift.IsPlaceholder(rec.TimeIn) || len(rec.Entries) == 0 {
		return rec.TimeIn, rec.TimeOut
	}

	in, out := shift.Placeholder, shift.Placeholder
	for _, e := range sortedEntries(rec.Entries) {
		tod, ok := entryTimeOfDay(e)
		if !ok {
			continue
		}
		switch e.Type {
		case attendance.EntryTypeTimeIn:
			if in == shift.Placeholder {
				in = tod.String()
			}
		case attendance.EntryTypeTimeOut:
			if in != shift.Placeholder {
				out = tod.String()
			}
		}
	}
	return in, out
}

func isNextDay(rec, next attendance.DailyRecord) bool {
	if rec.Malformed || next.Malformed {
		return false
	}
	d1, err1 := time.Parse(dateLayout, rec.Date)
	d2, err2 := time.Parse(dateLayout, next.Date)
	if err1 != nil || err2 != nil {
		return false
	}
	return d1.AddDate(0, 0, 1).Equal(d2)
}

// findEarlyTimeout looks for the time_out that closes the previous day's night
// shift. The top-level time_out is preferred; otherwise the record's entries
// are scanned for a TIME_OUT that precedes the day's first TIME_IN.
func findEarlyTimeout(next attendance.DailyRecord) (attendance.RawEntry, bool) {
	if !shift.IsPlaceholder(next.TimeOut) {
		if tod, err := shift.Parse(next.TimeOut); err == nil && shift.IsEarlyTimeout(tod) {
			if e, ok := matchingEntry(next, tod); ok {
				return e, true
			}
			return timeoutFromField(next, tod), true
		}
	}

	for _, e := range sortedEntries(next.Entries) {
		if e.Type == attendance.EntryTypeTimeIn {
			break
		}
		if e.Type != attendance.EntryTypeTimeOut {
			continue
		}
		tod, ok := entryTimeOfDay(e)
		if ok && shift.IsEarlyTimeout(tod) {
			return e, true
		}
	}
	return attendance.RawEntry{}, false
}

func matchingEntry(rec attendance.DailyRecord, tod shift.TimeOfDay) (attendance.RawEntry, bool) {
	for _, e := range rec.Entries {
		if e.Type != attendance.EntryTypeTimeOut {
			continue
		}
		if got, ok := entryTimeOfDay(e); ok && got == tod {
			return e, true
		}
	}
	return attendance.RawEntry{}, false
}

func timeoutFromField(rec attendance.DailyRecord, tod shift.TimeOfDay) attendance.RawEntry {
	day, err := time.Parse(dateLayout, rec.Date)
	if err != nil {
		return attendance.RawEntry{Type: attendance.EntryTypeTimeOut, FormattedDisplay: tod.String()}
	}
	return synthesizeEntry(attendance.EntryTypeTimeOut, tod.On(day))
}

func sortedEntries(entries []attendance.RawEntry) []attendance.RawEntry {
	out := make([]attendance.RawEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Timestamp, out[j].Timestamp
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})
	return out
}

func displayTime(s string) string {
	if shift.IsPlaceholder(s) {
		return shift.Placeholder
	}
	tod, err := shift.Parse(s)
	if err != nil {
		return s
	}
	return tod.String()
}

func baseRecord(rec attendance.DailyRecord, role attendance.MergeRole) attendance.MergedShiftRecord {
	in, out := recordTimes(rec)
	return attendance.MergedShiftRecord{
		DailyRecord:    rec,
		Role:           role,
		IsNightShift:   isNightShiftRecord(rec),
		DisplayTimeIn:  displayTime(in),
		DisplayTimeOut: displayTime(out),
	}
}

func standaloneRecord(rec attendance.DailyRecord) attendance.MergedShiftRecord {
	return baseRecord(rec, attendance.MergeRoleStandalone)
}

func incompleteRecord(rec attendance.DailyRecord) attendance.MergedShiftRecord {
	m := baseRecord(rec, attendance.MergeRoleIncomplete)
	m.IsNightShift = true
	m.IsIncomplete = true
	return m
}

func nightShiftHead(rec, next attendance.DailyRecord, timeout attendance.RawEntry) attendance.MergedShiftRecord {
	m := baseRecord(rec, attendance.MergeRoleNightShiftHead)
	m.IsNightShift = true

	consumed := timeout
	m.ConsumedNextDayTimeout = &consumed

	display := timeout.FormattedDisplay
	if tod, ok := entryTimeOfDay(timeout); ok {
		display = tod.String()
	}
	m.DisplayTimeOut = fmt.Sprintf("%s (%s)", display, next.Date)
	m.DisplayDateRange = fmt.Sprintf("%s to %s", rec.Date, next.Date)
	return m
}

func nightShiftCompanion(next attendance.DailyRecord) attendance.MergedShiftRecord {
	m := baseRecord(next, attendance.MergeRoleNightShiftCompanion)
	m.HasPreviousNightshiftTimeout = true
	return m
}
