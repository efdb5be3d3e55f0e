package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayRecord(date, timeIn, timeOut, schedIn, schedOut string) attendance.DailyRecord {
	return attendance.DailyRecord{
		Date:         date,
		TimeIn:       timeIn,
		TimeOut:      timeOut,
		ScheduledIn:  schedIn,
		ScheduledOut: schedOut,
	}
}

func TestMergeNightShifts_PairsEarlyTimeoutWithPreviousNight(t *testing.T) {
	records := []attendance.DailyRecord{
		dayRecord("2024-01-15", "21:41", "-", "22:00", "07:00"),
		dayRecord("2024-01-16", "-", "00:21", "09:00", "17:00"),
	}

	merged := MergeNightShifts(records)
	require.Len(t, merged, 2)

	head := merged[0]
	assert.Equal(t, attendance.MergeRoleNightShiftHead, head.Role)
	assert.True(t, head.IsNightShift)
	assert.False(t, head.IsIncomplete)
	assert.Contains(t, head.DisplayTimeOut, "00:21")
	assert.Contains(t, head.DisplayTimeOut, "2024-01-16")
	assert.Equal(t, "00:21 (2024-01-16)", head.DisplayTimeOut)
	assert.Equal(t, "2024-01-15 to 2024-01-16", head.DisplayDateRange)
	assert.Equal(t, "21:41", head.DisplayTimeIn)
	require.NotNil(t, head.ConsumedNextDayTimeout)
	assert.Equal(t, attendance.EntryTypeTimeOut, head.ConsumedNextDayTimeout.Type)

	companion := merged[1]
	assert.Equal(t, attendance.MergeRoleNightShiftCompanion, companion.Role)
	assert.True(t, companion.HasPreviousNightshiftTimeout)
	assert.Equal(t, "2024-01-16", companion.Date)
}

func TestMergeNightShifts_NoFalseMerge(t *testing.T) {
	records := []attendance.DailyRecord{
		dayRecord("2024-01-15", "09:02", "17:05", "09:00", "17:00"),
		dayRecord("2024-01-16", "08:55", "17:01", "09:00", "17:00"),
	}

	merged := MergeNightShifts(records)
	require.Len(t, merged, 2)
	for _, m := range merged {
		assert.Equal(t, attendance.MergeRoleStandalone, m.Role)
		assert.False(t, m.IsNightShift)
		assert.False(t, m.HasPreviousNightshiftTimeout)
		assert.Nil(t, m.ConsumedNextDayTimeout)
	}
}

func TestMergeNightShifts_IncompleteWhenNextDayTimeoutIsLate(t *testing.T) {
	records := []attendance.DailyRecord{
		dayRecord("2024-01-15", "22:03", "-", "22:00", "07:00"),
		dayRecord("2024-01-16", "09:00", "17:00", "09:00", "17:00"),
	}

	merged := MergeNightShifts(records)
	require.Len(t, merged, 2)

	assert.Equal(t, attendance.MergeRoleIncomplete, merged[0].Role)
	assert.True(t, merged[0].IsIncomplete)
	assert.True(t, merged[0].IsNightShift)
	assert.Nil(t, merged[0].ConsumedNextDayTimeout)

	assert.Equal(t, attendance.MergeRoleStandalone, merged[1].Role)
	assert.False(t, merged[1].HasPreviousNightshiftTimeout)
	assert.Equal(t, "17:00", merged[1].DisplayTimeOut)
}

func TestMergeNightShifts_IncompleteAtEndOfList(t *testing.T) {
	merged := MergeNightShifts([]attendance.DailyRecord{
		dayRecord("2024-01-15", "22:03", "-", "22:00", "07:00"),
	})
	require.Len(t, merged, 1)
	assert.True(t, merged[0].IsIncomplete)
}

func TestMergeNightShifts_RequiresConsecutiveDate(t *testing.T) {
	merged := MergeNightShifts([]attendance.DailyRecord{
		dayRecord("2024-01-15", "22:03", "-", "22:00", "07:00"),
		dayRecord("2024-01-17", "-", "02:00", "09:00", "17:00"),
	})
	require.Len(t, merged, 2)
	assert.Equal(t, attendance.MergeRoleIncomplete, merged[0].Role)
	assert.Equal(t, attendance.MergeRoleStandalone, merged[1].Role)
}

func TestMergeNightShifts_UsesEntriesBeforeFirstTimeIn(t *testing.T) {
	loc := time.UTC
	out := time.Date(2024, 1, 16, 3, 10, 0, 0, loc)
	in := time.Date(2024, 1, 16, 21, 58, 0, 0, loc)

	next := dayRecord("2024-01-16", "21:58", "-", "22:00", "07:00")
	next.Entries = []attendance.RawEntry{
		{Type: attendance.EntryTypeTimeIn, EventTime: in.Format(time.RFC3339), Timestamp: in},
		{Type: attendance.EntryTypeTimeOut, EventTime: out.Format(time.RFC3339), Timestamp: out},
	}

	merged := MergeNightShifts([]attendance.DailyRecord{
		dayRecord("2024-01-15", "21:55", "-", "22:00", "07:00"),
		next,
	})
	require.Len(t, merged, 2)
	assert.Equal(t, attendance.MergeRoleNightShiftHead, merged[0].Role)
	assert.Equal(t, "03:10 (2024-01-16)", merged[0].DisplayTimeOut)
	assert.True(t, merged[1].HasPreviousNightshiftTimeout)
}

func TestMergeNightShifts_MalformedScheduleDegradesToRegularDay(t *testing.T) {
	merged := MergeNightShifts([]attendance.DailyRecord{
		dayRecord("2024-01-15", "21:41", "-", "25:00", "07:00"),
		dayRecord("2024-01-16", "-", "00:21", "ab:cd", "17:00"),
	})
	require.Len(t, merged, 2)
	assert.Equal(t, attendance.MergeRoleStandalone, merged[0].Role)
	assert.False(t, merged[0].IsNightShift)
	assert.Equal(t, attendance.MergeRoleStandalone, merged[1].Role)
}

func TestMergeNightShifts_CoverageAndIdempotence(t *testing.T) {
	records := []attendance.DailyRecord{
		dayRecord("2024-01-18", "09:00", "17:00", "09:00", "17:00"),
		dayRecord("2024-01-15", "21:41", "-", "22:00", "07:00"),
		dayRecord("not-a-date", "09:00", "17:00", "09:00", "17:00"),
		dayRecord("2024-01-16", "-", "00:21", "22:00", "07:00"),
		dayRecord("2024-01-17", "22:10", "-", "22:00", "07:00"),
		dayRecord("2024-01-19", "-", "-", "-", "-"),
	}

	first := MergeNightShifts(records)
	second := MergeNightShifts(records)
	assert.Equal(t, first, second)

	require.Len(t, first, len(records))
	seen := make(map[string]int)
	for _, m := range first {
		seen[m.Date]++
	}
	for _, r := range records {
		assert.Equal(t, 1, seen[r.Date], "record %s emitted once", r.Date)
	}

	// Date order, malformed last.
	assert.Equal(t, "2024-01-15", first[0].Date)
	assert.Equal(t, "not-a-date", first[len(first)-1].Date)
	assert.True(t, first[len(first)-1].Malformed)

	// Input untouched.
	assert.Equal(t, "2024-01-18", records[0].Date)
	assert.False(t, records[2].Malformed)
}
