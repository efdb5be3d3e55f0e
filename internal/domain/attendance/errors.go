package attendance

import "errors"

// Attendance domain errors
var (
	// Clock errors
	ErrSubmissionInFlight   = errors.New("a clock request is already being processed")
	ErrOutsideAllowedRadius = errors.New("you are outside the allowed radius")
	ErrNotCheckedIn         = errors.New("you have not checked in yet")
	ErrAlreadyCheckedIn     = errors.New("you already have an active session")

	// Source errors
	ErrRecordsUnavailable = errors.New("attendance records are unavailable")
	ErrEmployeeNotFound   = errors.New("employee not found")

	// General errors
	ErrMissingEmployeeClaim = errors.New("employee_id claim is missing or invalid")
)
