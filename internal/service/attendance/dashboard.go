package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/shift"
)

// buildDashboard derives every dashboard view from one snapshot. It never
// mutates snap.
func (a *AttendanceServiceImpl) buildDashboard(snap attendance.Snapshot, now time.Time) attendance.DashboardResponse {
	hasActive := snap.HasActiveSession()

	resp := attendance.DashboardResponse{
		EmployeeID:  snap.EmployeeID,
		GeneratedAt: now.Format(time.RFC3339),
		FetchedAt:   snap.FetchedAt.In(a.loc).Format(time.RFC3339),
		Records:     mapMergedRecords(MergeNightShifts(LocalizeRecords(snap.Records, a.loc))),
		Sessions:    a.mapSessions(SessionsFromRecords(snap.Records, a.loc), now),
		ClockIn:     mapGate(schedule.GateActionIn, EvaluateScheduleGate(schedule.GateActionIn, snap.Schedule, snap.ScheduleLoadFailed, hasActive, now)),
		ClockOut:    mapGate(schedule.GateActionOut, EvaluateScheduleGate(schedule.GateActionOut, snap.Schedule, snap.ScheduleLoadFailed, hasActive, now)),
	}

	if snap.Schedule != nil {
		resp.Schedule = mapSchedule(*snap.Schedule)
	}
	if snap.ActiveSession != nil {
		resp.ActiveSession = &attendance.ActiveSessionResponse{
			StartTime:              snap.ActiveSession.StartTime.In(a.loc).Format(time.RFC3339),
			CurrentDurationMinutes: int(snap.ActiveSession.CurrentDuration.Minutes()),
			IsOvertime:             snap.ActiveSession.IsOvertime,
		}
	}

	return resp
}

func mapGate(action schedule.GateAction, d schedule.GateDecision) attendance.GateResponse {
	resp := attendance.GateResponse{
		Action:  string(action),
		Allowed: d.Allowed,
		Reason:  string(d.Reason),
	}
	if err := d.Err(); err != nil {
		resp.Message = err.Error()
	}
	if d.EarliestAllowed != nil {
		earliest := d.EarliestAllowed.Format(time.RFC3339)
		resp.EarliestAllowed = &earliest
	}
	return resp
}

func mapSchedule(s schedule.Schedule) *attendance.ScheduleResponse {
	isNight := s.IsNightShift
	if in, inOK := scheduleBound(s.ScheduledTimeIn); inOK {
		if out, outOK := scheduleBound(s.ScheduledTimeOut); outOK {
			isNight = shift.IsNightShift(in, out)
		}
	}
	return &attendance.ScheduleResponse{
		ScheduleName:     s.ScheduleName,
		ScheduledTimeIn:  s.ScheduledTimeIn,
		ScheduledTimeOut: s.ScheduledTimeOut,
		IsNightShift:     isNight,
		LocationType:     string(s.LocationType),
	}
}

func mapEntry(e attendance.RawEntry) attendance.EntryResponse {
	return attendance.EntryResponse{
		EntryType:        string(e.Type),
		EventTime:        e.EventTime,
		FormattedDisplay: e.FormattedDisplay,
	}
}

func mapMergedRecords(records []attendance.MergedShiftRecord) []attendance.MergedRecordResponse {
	out := make([]attendance.MergedRecordResponse, 0, len(records))
	for _, r := range records {
		item := attendance.MergedRecordResponse{
			Date:                         r.Date,
			Day:                          r.Day,
			Status:                       r.Status,
			TimeIn:                       r.TimeIn,
			TimeOut:                      r.TimeOut,
			ScheduledIn:                  r.ScheduledIn,
			ScheduledOut:                 r.ScheduledOut,
			Role:                         string(r.Role),
			IsNightShift:                 r.IsNightShift,
			IsIncomplete:                 r.IsIncomplete,
			HasPreviousNightshiftTimeout: r.HasPreviousNightshiftTimeout,
			DisplayTimeIn:                r.DisplayTimeIn,
			DisplayTimeOut:               r.DisplayTimeOut,
			DisplayDateRange:             r.DisplayDateRange,
		}
		if r.ConsumedNextDayTimeout != nil {
			consumed := mapEntry(*r.ConsumedNextDayTimeout)
			item.ConsumedNextDayTimeout = &consumed
		}
		out = append(out, item)
	}
	return out
}

func (a *AttendanceServiceImpl) mapSessions(sessions []attendance.Session, now time.Time) []attendance.SessionResponse {
	out := make([]attendance.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		item := attendance.SessionResponse{
			Date:            s.Date,
			TimeIn:          s.TimeIn.In(a.loc).Format(time.RFC3339),
			DurationMinutes: int(s.Duration.Minutes()),
			Status:          string(s.Status),
			Clamped:         s.Clamped,
			SpansMidnight:   s.SpansMidnight,
		}
		if s.TimeOut != nil {
			timeOut := s.TimeOut.In(a.loc).Format(time.RFC3339)
			item.TimeOut = &timeOut
		} else if elapsed := now.Sub(s.TimeIn); elapsed > 0 {
			item.DurationMinutes = int(elapsed.Minutes())
		}
		out = append(out, item)
	}
	return out
}
