package schedule

import "time"

// Schedule is today's planned shift for one employee as delivered by the
// attendance API. Bounds are "HH:MM[:SS]" strings; empty means not set.
type Schedule struct {
	ScheduleName       string
	ScheduledTimeIn    string
	ScheduledTimeOut   string
	IsNightShift       bool // upstream hint, recomputed by the gate
	GracePeriodMinutes int
	LocationType       WorkArrangement
	Locations          []Geofence
}

type WorkArrangement string

const (
	WorkArrangementWFO    WorkArrangement = "WFO"    // Work From Office
	WorkArrangementWFA    WorkArrangement = "WFA"    // Work From Anywhere
	WorkArrangementHybrid WorkArrangement = "Hybrid" // Hybrid Work Arrangement
)

// Geofence is a circular boundary around an allowed clock location.
type Geofence struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
}

// GateAction is the attendance action being gated.
type GateAction string

const (
	GateActionIn  GateAction = "IN"
	GateActionOut GateAction = "OUT"
)

var GateActionValues = []string{
	string(GateActionIn),
	string(GateActionOut),
}

// GateReason names the terminal outcome of a gate evaluation.
type GateReason string

const (
	GateReasonNone                GateReason = "NONE"
	GateReasonNoSchedule          GateReason = "NO_SCHEDULE"
	GateReasonNoScheduleNoSession GateReason = "NO_SCHEDULE_NO_SESSION"
	GateReasonIncompleteSchedule  GateReason = "INCOMPLETE_SCHEDULE"
	GateReasonTooEarly            GateReason = "TOO_EARLY"
	GateReasonScheduleLoadError   GateReason = "SCHEDULE_LOAD_ERROR"
)

// GateDecision is the result of evaluating a clock action against today's
// schedule. EarliestAllowed is only set for GateReasonTooEarly.
type GateDecision struct {
	Allowed         bool
	Reason          GateReason
	EarliestAllowed *time.Time
}

// Allow returns a permitting decision.
func Allow() GateDecision {
	return GateDecision{Allowed: true, Reason: GateReasonNone}
}

// Deny returns a blocking decision with the given reason.
func Deny(reason GateReason) GateDecision {
	return GateDecision{Allowed: false, Reason: reason}
}

// Err maps a denied decision to its domain error. Allowed decisions return nil.
func (d GateDecision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case GateReasonNoSchedule:
		return ErrNoSchedule
	case GateReasonNoScheduleNoSession:
		return ErrNoScheduleNoSession
	case GateReasonIncompleteSchedule:
		return ErrIncompleteSchedule
	case GateReasonScheduleLoadError:
		return ErrScheduleLoad
	case GateReasonTooEarly:
		if d.EarliestAllowed != nil {
			return &TooEarlyError{EarliestAllowed: *d.EarliestAllowed}
		}
		return ErrTooEarly
	default:
		return ErrGateDenied
	}
}
