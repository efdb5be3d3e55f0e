package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Schedule gate errors
var (
	ErrScheduleLoad        = errors.New("failed to load today's schedule")
	ErrNoSchedule          = errors.New("no schedule found for today")
	ErrNoScheduleNoSession = errors.New("no schedule found for today and no active session to close")
	ErrIncompleteSchedule  = errors.New("today's schedule is missing a clock in or clock out time")
	ErrTooEarly            = errors.New("too early to clock in")
	ErrGateDenied          = errors.New("attendance action is not allowed right now")
)

// TooEarlyError carries the earliest moment a clock-in will be accepted.
type TooEarlyError struct {
	EarliestAllowed time.Time
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("%s: earliest allowed at %s", ErrTooEarly, e.EarliestAllowed.Format("15:04:05"))
}

func (e *TooEarlyError) Unwrap() error {
	return ErrTooEarly
}
