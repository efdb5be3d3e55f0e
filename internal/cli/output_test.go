package cli

import (
	"bytes"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRecords(t *testing.T) {
	color.NoColor = true

	out := RenderRecords([]attendance.MergedRecordResponse{
		{Date: "2026-03-02", Day: "Monday", Status: "present", Role: "nightshift_head", DisplayTimeIn: "22:00:00", DisplayTimeOut: "06:00:00", ScheduledIn: "22:00:00", ScheduledOut: "06:00:00", DisplayDateRange: "02 Mar - 03 Mar"},
		{Date: "2026-03-04", Day: "Wednesday", Status: "present", Role: "incomplete", DisplayTimeIn: "08:00", DisplayTimeOut: "-"},
	})

	lines := bytes.Split([]byte(out), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "2026-03-02  Mon  22:00  06:00  22:00-06:00  present (night shift, 02 Mar - 03 Mar)", string(lines[1]))
	assert.Contains(t, string(lines[2]), "present (incomplete)")

	assert.Equal(t, "No attendance records", RenderRecords(nil))
}

func TestRenderSessions(t *testing.T) {
	out := "2026-03-03T06:00:00+07:00"
	text := RenderSessions([]attendance.SessionResponse{
		{Date: "2026-03-02", TimeIn: "2026-03-02T22:00:00+07:00", TimeOut: &out, DurationMinutes: 480, Status: "completed", SpansMidnight: true},
	}, &attendance.ActiveSessionResponse{StartTime: "2026-03-04T08:00:00+07:00", CurrentDurationMinutes: 95})

	assert.Contains(t, text, "Active since 08:00, 1h35m (on time)")
	assert.Contains(t, text, "2026-03-02  22:00  06:00  8h00m     completed (overnight)")
}

func TestWrite_Formats(t *testing.T) {
	payload := map[string]any{"ok": true}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, "human", payload))
	assert.JSONEq(t, `{"ok":true}`, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatYAML, "human", payload))
	assert.Equal(t, "ok: true\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatText, "human", payload))
	assert.Equal(t, "human\n", buf.String())
}
