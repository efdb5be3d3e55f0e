package attendance

import (
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// ========================================
// CLOCK DTOs
// ========================================

// ClockRequest carries the device position reported by the browser. When the
// device failed to produce a position, LocationError holds its classified
// reason: permission_denied, position_unavailable or timeout.
type ClockRequest struct {
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Accuracy      float64  `json:"accuracy"`
	LocationError string   `json:"location_error,omitempty"`
}

var LocationErrorValues = []string{"permission_denied", "position_unavailable", "timeout"}

func (r *ClockRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.LocationError != "" {
		if !validator.IsInSlice(r.LocationError, LocationErrorValues) {
			errs = append(errs, validator.ValidationError{
				Field:   "location_error",
				Message: "location_error must be one of: permission_denied, position_unavailable, timeout",
			})
		}
		if len(errs) > 0 {
			return errs
		}
		return nil
	}

	if r.Latitude != nil && !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude != nil && !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if r.Accuracy < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "accuracy",
			Message: "accuracy must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockResponse struct {
	EntryType        string       `json:"entry_type"`
	EventTime        string       `json:"event_time"`
	FormattedDisplay string       `json:"formatted_display"`
	Gate             GateResponse `json:"gate"`
	DistanceMeters   *float64     `json:"distance_meters,omitempty"`
	LocationName     *string      `json:"location_name,omitempty"`
}

// ========================================
// RECORD DTOs
// ========================================

type RecordFilter struct {
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.StartDate != nil && *f.StartDate != "" {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) == 0 && f.StartDate != nil && f.EndDate != nil && *f.StartDate != "" && *f.EndDate != "" {
		start, _ := validator.ParseDate(*f.StartDate)
		end, _ := validator.ParseDate(*f.EndDate)
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EntryResponse struct {
	EntryType        string `json:"entry_type"`
	EventTime        string `json:"event_time"`
	FormattedDisplay string `json:"formatted_display"`
}

type MergedRecordResponse struct {
	Date                         string         `json:"date"`
	Day                          string         `json:"day"`
	Status                       string         `json:"status"`
	TimeIn                       string         `json:"time_in"`
	TimeOut                      string         `json:"time_out"`
	ScheduledIn                  string         `json:"scheduled_in"`
	ScheduledOut                 string         `json:"scheduled_out"`
	Role                         string         `json:"role"`
	IsNightShift                 bool           `json:"is_night_shift"`
	IsIncomplete                 bool           `json:"is_incomplete"`
	HasPreviousNightshiftTimeout bool           `json:"has_previous_nightshift_timeout"`
	ConsumedNextDayTimeout       *EntryResponse `json:"consumed_next_day_timeout,omitempty"`
	DisplayTimeIn                string         `json:"display_time_in"`
	DisplayTimeOut               string         `json:"display_time_out"`
	DisplayDateRange             string         `json:"display_date_range,omitempty"`
}

type ListRecordsResponse struct {
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	Records   []MergedRecordResponse `json:"records"`
}

// ========================================
// SESSION / DASHBOARD DTOs
// ========================================

type SessionResponse struct {
	Date            string  `json:"date"`
	TimeIn          string  `json:"time_in"`
	TimeOut         *string `json:"time_out,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status"`
	Clamped         bool    `json:"clamped,omitempty"`
	SpansMidnight   bool    `json:"spans_midnight,omitempty"`
}

type ActiveSessionResponse struct {
	StartTime              string `json:"start_time"`
	CurrentDurationMinutes int    `json:"current_duration_minutes"`
	IsOvertime             bool   `json:"is_overtime"`
}

type ScheduleResponse struct {
	ScheduleName     string `json:"schedule_name,omitempty"`
	ScheduledTimeIn  string `json:"scheduled_time_in"`
	ScheduledTimeOut string `json:"scheduled_time_out"`
	IsNightShift     bool   `json:"is_night_shift"`
	LocationType     string `json:"location_type,omitempty"`
}

type GateResponse struct {
	Action          string  `json:"action"`
	Allowed         bool    `json:"allowed"`
	Reason          string  `json:"reason"`
	Message         string  `json:"message,omitempty"`
	EarliestAllowed *string `json:"earliest_allowed,omitempty"`
}

type DashboardResponse struct {
	EmployeeID    string                 `json:"employee_id"`
	GeneratedAt   string                 `json:"generated_at"`
	FetchedAt     string                 `json:"fetched_at"`
	Schedule      *ScheduleResponse      `json:"schedule,omitempty"`
	ActiveSession *ActiveSessionResponse `json:"active_session,omitempty"`
	Records       []MergedRecordResponse `json:"records"`
	Sessions      []SessionResponse      `json:"sessions"`
	ClockIn       GateResponse           `json:"clock_in"`
	ClockOut      GateResponse           `json:"clock_out"`
}

// ========================================
// STREAM DTOs
// ========================================

// StreamTokenResponse is the short-lived token an EventSource passes as ?token=.
type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
