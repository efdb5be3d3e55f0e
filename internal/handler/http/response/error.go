package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var tooEarly *schedule.TooEarlyError
	if errors.As(err, &tooEarly) {
		ErrorWithCode(w, http.StatusUnprocessableEntity, string(schedule.GateReasonTooEarly), err.Error(), map[string]string{
			"earliest_allowed": tooEarly.EarliestAllowed.Format(time.RFC3339),
		})
		return
	}

	switch {
	// Schedule gate errors
	case errors.Is(err, schedule.ErrTooEarly):
		ErrorWithCode(w, http.StatusUnprocessableEntity, string(schedule.GateReasonTooEarly), err.Error(), nil)
	case errors.Is(err, schedule.ErrNoScheduleNoSession):
		ErrorWithCode(w, http.StatusUnprocessableEntity, string(schedule.GateReasonNoScheduleNoSession), err.Error(), nil)
	case errors.Is(err, schedule.ErrNoSchedule):
		ErrorWithCode(w, http.StatusUnprocessableEntity, string(schedule.GateReasonNoSchedule), err.Error(), nil)
	case errors.Is(err, schedule.ErrIncompleteSchedule):
		ErrorWithCode(w, http.StatusUnprocessableEntity, string(schedule.GateReasonIncompleteSchedule), err.Error(), nil)
	case errors.Is(err, schedule.ErrScheduleLoad):
		ServiceUnavailable(w, string(schedule.GateReasonScheduleLoadError), "Unable to load today's schedule, please try again")
	case errors.Is(err, schedule.ErrGateDenied):
		Conflict(w, err.Error())

	// Location errors
	case errors.Is(err, geo.ErrPermissionDenied):
		ErrorWithCode(w, http.StatusUnprocessableEntity, "LOCATION_PERMISSION_DENIED", "Location permission is required to clock in or out", nil)
	case errors.Is(err, geo.ErrPositionUnavailable):
		ErrorWithCode(w, http.StatusUnprocessableEntity, "LOCATION_UNAVAILABLE", "Your location could not be determined", nil)
	case errors.Is(err, geo.ErrLocationTimeout):
		ErrorWithCode(w, http.StatusUnprocessableEntity, "LOCATION_TIMEOUT", "Locating your device took too long", nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrSubmissionInFlight):
		TooManyRequests(w, err.Error())
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrOutsideAllowedRadius):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, attendance.ErrRecordsUnavailable):
		ServiceUnavailable(w, "RECORDS_UNAVAILABLE", "Attendance records are unavailable, please try again")
	case errors.Is(err, attendance.ErrMissingEmployeeClaim):
		Unauthorized(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
