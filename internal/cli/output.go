package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	nightHeadColor  = color.New(color.FgCyan)
	companionColor  = color.New(color.FgHiBlack)
	incompleteColor = color.New(color.FgYellow)
	allowedColor    = color.New(color.FgGreen)
	blockedColor    = color.New(color.FgRed)
)

// Write prints payload as JSON or YAML, or prints human for text output.
func Write(w io.Writer, format, human string, payload any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case FormatYAML:
		// Round-trip through JSON so YAML keys follow the API field names.
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		_, err := fmt.Fprintln(w, human)
		return err
	}
}

// RenderRecords lays out merged records one line per row. Night-shift heads,
// their companions and incomplete rows are colored.
func RenderRecords(records []attendance.MergedRecordResponse) string {
	if len(records) == 0 {
		return "No attendance records"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s  %-3s  %-5s  %-5s  %-11s  %s\n", "DATE", "DAY", "IN", "OUT", "SCHEDULE", "STATUS")
	for _, r := range records {
		line := fmt.Sprintf("%-10s  %-3s  %-5s  %-5s  %-11s  %s",
			r.Date,
			shortDay(r.Day),
			clip(r.DisplayTimeIn, 5),
			clip(r.DisplayTimeOut, 5),
			clip(r.ScheduledIn, 5)+"-"+clip(r.ScheduledOut, 5),
			recordNote(r),
		)
		switch r.Role {
		case string(attendance.MergeRoleNightShiftHead):
			line = nightHeadColor.Sprint(line)
		case string(attendance.MergeRoleNightShiftCompanion):
			line = companionColor.Sprint(line)
		case string(attendance.MergeRoleIncomplete):
			line = incompleteColor.Sprint(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func recordNote(r attendance.MergedRecordResponse) string {
	note := r.Status
	switch r.Role {
	case string(attendance.MergeRoleNightShiftHead):
		note += " (night shift"
		if r.DisplayDateRange != "" {
			note += ", " + r.DisplayDateRange
		}
		note += ")"
	case string(attendance.MergeRoleNightShiftCompanion):
		note += " (continues previous night shift)"
	case string(attendance.MergeRoleIncomplete):
		note += " (incomplete)"
	}
	return strings.TrimSpace(note)
}

// RenderSessions lays out work sessions and the active one, if any.
func RenderSessions(sessions []attendance.SessionResponse, active *attendance.ActiveSessionResponse) string {
	var b strings.Builder
	if active != nil {
		status := "on time"
		if active.IsOvertime {
			status = "overtime"
		}
		fmt.Fprintf(&b, "Active since %s, %s (%s)\n", clockOf(active.StartTime), formatMinutes(active.CurrentDurationMinutes), status)
	}
	if len(sessions) == 0 {
		b.WriteString("No sessions")
		return b.String()
	}

	fmt.Fprintf(&b, "%-10s  %-5s  %-5s  %-8s  %s\n", "DATE", "IN", "OUT", "DURATION", "STATUS")
	for _, s := range sessions {
		out := "-"
		if s.TimeOut != nil {
			out = clockOf(*s.TimeOut)
		}
		status := s.Status
		if s.SpansMidnight {
			status += " (overnight)"
		}
		if s.Clamped {
			status += " (clamped)"
		}
		fmt.Fprintf(&b, "%-10s  %-5s  %-5s  %-8s  %s\n", s.Date, clockOf(s.TimeIn), out, formatMinutes(s.DurationMinutes), status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderGate prints one gate decision.
func RenderGate(g attendance.GateResponse) string {
	label := "Clock in"
	if g.Action == "OUT" {
		label = "Clock out"
	}
	if g.Allowed {
		return fmt.Sprintf("%s: %s", label, allowedColor.Sprint("allowed"))
	}
	line := fmt.Sprintf("%s: %s (%s)", label, blockedColor.Sprint("blocked"), g.Reason)
	if g.EarliestAllowed != nil {
		line += ", earliest " + clockOf(*g.EarliestAllowed)
	}
	if g.Message != "" {
		line += "\n  " + g.Message
	}
	return line
}

func shortDay(day string) string {
	if len(day) > 3 {
		return day[:3]
	}
	return day
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clockOf(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("15:04")
}

func formatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}
