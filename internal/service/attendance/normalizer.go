package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/shift"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// eventTimeLayouts are tried in order. Layouts without a zone are read in the
// caller's location.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	dateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

func resolveEventTime(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortEntries returns a copy of entries ordered by absolute timestamp. Ties
// keep their input order. Entries without a resolvable instant are flagged
// Malformed and moved to the end.
func SortEntries(entries []attendance.RawEntry, loc *time.Location) []attendance.RawEntry {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]attendance.RawEntry, len(entries))
	copy(out, entries)

	for i := range out {
		if !out[i].Timestamp.IsZero() {
			out[i].Timestamp = out[i].Timestamp.In(loc)
			continue
		}
		ts, ok := resolveEventTime(out[i].EventTime, loc)
		out[i].Timestamp = ts
		out[i].Malformed = !ok
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Malformed || b.Malformed {
			return !a.Malformed && b.Malformed
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out
}

// LocalizeRecords returns a copy of records whose entry timestamps are read
// in loc. Event times carrying another offset keep their instant but take the
// local wall clock, which the early-timeout rule is defined on.
func LocalizeRecords(records []attendance.DailyRecord, loc *time.Location) []attendance.DailyRecord {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]attendance.DailyRecord, len(records))
	copy(out, records)
	for i := range out {
		if len(out[i].Entries) == 0 {
			continue
		}
		entries := make([]attendance.RawEntry, len(out[i].Entries))
		copy(entries, out[i].Entries)
		for j := range entries {
			if !entries[j].Timestamp.IsZero() {
				entries[j].Timestamp = entries[j].Timestamp.In(loc)
				continue
			}
			if ts, ok := resolveEventTime(entries[j].EventTime, loc); ok {
				entries[j].Timestamp = ts
			}
		}
		out[i].Entries = entries
	}
	return out
}

// SortDailyRecords returns a copy of records ordered by date. Records with a
// malformed date are flagged and moved to the end in input order.
func SortDailyRecords(records []attendance.DailyRecord) []attendance.DailyRecord {
	out := make([]attendance.DailyRecord, len(records))
	copy(out, records)

	dates := make([]time.Time, len(out))
	for i := range out {
		d, err := time.Parse(dateLayout, out[i].Date)
		if err != nil {
			out[i].Malformed = true
			continue
		}
		dates[i] = d
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := out[idx[i]], out[idx[j]]
		if a.Malformed || b.Malformed {
			return !a.Malformed && b.Malformed
		}
		return dates[idx[i]].Before(dates[idx[j]])
	})

	sorted := make([]attendance.DailyRecord, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

// FlattenEntries turns day records into a single entry stream. A record's own
// entries are used when present; otherwise entries are synthesized from its
// top-level time_in/time_out. A synthesized time_out earlier than the time_in
// of a night-shift record is placed on the following day.
func FlattenEntries(records []attendance.DailyRecord, loc *time.Location) []attendance.RawEntry {
	if loc == nil {
		loc = time.UTC
	}
	var entries []attendance.RawEntry
	for _, rec := range records {
		if len(rec.Entries) > 0 {
			entries = append(entries, rec.Entries...)
			continue
		}

		day, err := time.ParseInLocation(dateLayout, rec.Date, loc)
		if err != nil {
			continue
		}

		var inAt time.Time
		if in, err := shift.Parse(rec.TimeIn); err == nil {
			inAt = in.On(day)
			entries = append(entries, synthesizeEntry(attendance.EntryTypeTimeIn, inAt))
		}
		if out, err := shift.Parse(rec.TimeOut); err == nil {
			outAt := out.On(day)
			if !inAt.IsZero() && outAt.Before(inAt) && isNightShiftRecord(rec) {
				outAt = out.On(day.AddDate(0, 0, 1))
			}
			entries = append(entries, synthesizeEntry(attendance.EntryTypeTimeOut, outAt))
		}
	}
	return entries
}

func synthesizeEntry(entryType attendance.EntryType, at time.Time) attendance.RawEntry {
	return attendance.RawEntry{
		Type:             entryType,
		EventTime:        at.Format(dateTimeLayout),
		Timestamp:        at,
		FormattedDisplay: at.Format("15:04"),
	}
}

// entryTimeOfDay returns the wall-clock time of an entry.
func entryTimeOfDay(e attendance.RawEntry) (shift.TimeOfDay, bool) {
	if !e.Timestamp.IsZero() {
		return shift.FromTime(e.Timestamp), true
	}
	if ts, ok := resolveEventTime(e.EventTime, time.UTC); ok {
		return shift.FromTime(ts), true
	}
	if tod, err := shift.Parse(e.FormattedDisplay); err == nil {
		return tod, true
	}
	return shift.TimeOfDay{}, false
}
