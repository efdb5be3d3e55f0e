package timeapi

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

// envelope is the upstream response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type timeEntryDTO struct {
	EntryType        string `json:"entry_type"`
	EventTime        string `json:"event_time"`
	FormattedDisplay string `json:"formatted_display,omitempty"`
}

type dailyRecordDTO struct {
	Date         string         `json:"date"`
	Day          string         `json:"day"`
	Status       string         `json:"status"`
	TimeIn       string         `json:"time_in"`
	TimeOut      string         `json:"time_out"`
	ScheduledIn  string         `json:"scheduled_in"`
	ScheduledOut string         `json:"scheduled_out"`
	TimeEntries  []timeEntryDTO `json:"time_entries,omitempty"`
}

type scheduleDTO struct {
	ScheduleName       string              `json:"schedule_name,omitempty"`
	ScheduledTimeIn    string              `json:"scheduled_time_in"`
	ScheduledTimeOut   string              `json:"scheduled_time_out"`
	IsNightShift       bool                `json:"is_night_shift"`
	GracePeriodMinutes int                 `json:"grace_period_minutes,omitempty"`
	LocationType       string              `json:"location_type,omitempty"`
	Locations          []schedule.Geofence `json:"locations,omitempty"`
}

type activeSessionDTO struct {
	StartTime       string `json:"start_time"`
	CurrentDuration int64  `json:"current_duration"` // seconds
	IsOvertime      bool   `json:"is_overtime"`
}

type activeSessionPayload struct {
	ActiveSession *activeSessionDTO `json:"active_session"`
}

type entryRequestDTO struct {
	EmployeeID string  `json:"employee_id"`
	EntryType  string  `json:"entry_type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Accuracy   float64 `json:"accuracy"`
	OccurredAt string  `json:"occurred_at"`
}

// toDomain reads the instant in loc so wall-clock rules see local time.
// Zone-less event times are resolved later in the employee's location.
func (d timeEntryDTO) toDomain(loc *time.Location) attendance.RawEntry {
	e := attendance.RawEntry{
		Type:             attendance.EntryType(d.EntryType),
		EventTime:        d.EventTime,
		FormattedDisplay: d.FormattedDisplay,
	}
	if ts, err := time.Parse(time.RFC3339, d.EventTime); err == nil {
		e.Timestamp = ts.In(loc)
	}
	return e
}

func (d dailyRecordDTO) toDomain(loc *time.Location) attendance.DailyRecord {
	rec := attendance.DailyRecord{
		Date:         d.Date,
		Day:          d.Day,
		Status:       d.Status,
		TimeIn:       d.TimeIn,
		TimeOut:      d.TimeOut,
		ScheduledIn:  d.ScheduledIn,
		ScheduledOut: d.ScheduledOut,
	}
	for _, e := range d.TimeEntries {
		rec.Entries = append(rec.Entries, e.toDomain(loc))
	}
	return rec
}

func (d scheduleDTO) toDomain() *schedule.Schedule {
	return &schedule.Schedule{
		ScheduleName:       d.ScheduleName,
		ScheduledTimeIn:    d.ScheduledTimeIn,
		ScheduledTimeOut:   d.ScheduledTimeOut,
		IsNightShift:       d.IsNightShift,
		GracePeriodMinutes: d.GracePeriodMinutes,
		LocationType:       schedule.WorkArrangement(d.LocationType),
		Locations:          d.Locations,
	}
}

func (d activeSessionDTO) toDomain(loc *time.Location) (*attendance.ActiveSession, error) {
	start, err := time.Parse(time.RFC3339, d.StartTime)
	if err != nil {
		return nil, err
	}
	return &attendance.ActiveSession{
		StartTime:       start.In(loc),
		CurrentDuration: time.Duration(d.CurrentDuration) * time.Second,
		IsOvertime:      d.IsOvertime,
	}, nil
}
