package attendance

import (
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/shift"
)

// EarlyClockInWindow is how long before the scheduled start a clock-in is accepted.
const EarlyClockInWindow = time.Hour

// EvaluateScheduleGate decides whether a clock action is permitted right now.
//
// Clock-outs have no late-side limit, and night-shift clock-outs skip the time
// window entirely. Without a schedule, a clock-out is only accepted when a
// session is open; the backend validates the night-shift continuation.
func EvaluateScheduleGate(action schedule.GateAction, sched *schedule.Schedule, scheduleLoadFailed, hasActiveSession bool, now time.Time) schedule.GateDecision {
	if scheduleLoadFailed {
		return schedule.Deny(schedule.GateReasonScheduleLoadError)
	}

	if sched == nil {
		if action == schedule.GateActionOut {
			if hasActiveSession {
				return schedule.Allow()
			}
			return schedule.Deny(schedule.GateReasonNoScheduleNoSession)
		}
		return schedule.Deny(schedule.GateReasonNoSchedule)
	}

	in, inOK := scheduleBound(sched.ScheduledTimeIn)
	_, outOK := scheduleBound(sched.ScheduledTimeOut)
	if !inOK || !outOK {
		return schedule.Deny(schedule.GateReasonIncompleteSchedule)
	}

	if action == schedule.GateActionOut {
		// Night-shift clock-outs skip the window; day-shift clock-outs have no late limit.
		return schedule.Allow()
	}

	scheduledInToday := in.On(now)
	if scheduledInToday.Sub(now) > EarlyClockInWindow {
		earliest := scheduledInToday.Add(-EarlyClockInWindow)
		decision := schedule.Deny(schedule.GateReasonTooEarly)
		decision.EarliestAllowed = &earliest
		return decision
	}
	return schedule.Allow()
}

func scheduleBound(s string) (shift.TimeOfDay, bool) {
	if shift.IsPlaceholder(s) {
		return shift.TimeOfDay{}, false
	}
	tod, err := shift.Parse(s)
	if err != nil {
		slog.Warn("Invalid schedule time", "value", s, "error", err)
		return shift.TimeOfDay{}, false
	}
	return tod, true
}
