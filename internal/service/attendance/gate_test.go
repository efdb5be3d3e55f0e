package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateScheduleGate(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 15, h, m, 0, 0, time.UTC) }
	day := &schedule.Schedule{ScheduledTimeIn: "07:00:00", ScheduledTimeOut: "16:00:00"}
	night := &schedule.Schedule{ScheduledTimeIn: "22:00", ScheduledTimeOut: "07:00"}

	tests := []struct {
		name       string
		action     schedule.GateAction
		sched      *schedule.Schedule
		loadFailed bool
		active     bool
		now        time.Time
		allowed    bool
		reason     schedule.GateReason
	}{
		{"load error wins", schedule.GateActionIn, day, true, false, at(7, 0), false, schedule.GateReasonScheduleLoadError},
		{"no schedule IN", schedule.GateActionIn, nil, false, true, at(7, 0), false, schedule.GateReasonNoSchedule},
		{"no schedule OUT with session", schedule.GateActionOut, nil, false, true, at(2, 0), true, schedule.GateReasonNone},
		{"no schedule OUT without session", schedule.GateActionOut, nil, false, false, at(2, 0), false, schedule.GateReasonNoScheduleNoSession},
		{"missing bound", schedule.GateActionIn, &schedule.Schedule{ScheduledTimeIn: "07:00"}, false, false, at(7, 0), false, schedule.GateReasonIncompleteSchedule},
		{"placeholder bound", schedule.GateActionOut, &schedule.Schedule{ScheduledTimeIn: "-", ScheduledTimeOut: "16:00"}, false, true, at(7, 0), false, schedule.GateReasonIncompleteSchedule},
		{"malformed bound", schedule.GateActionIn, &schedule.Schedule{ScheduledTimeIn: "7am", ScheduledTimeOut: "16:00"}, false, false, at(7, 0), false, schedule.GateReasonIncompleteSchedule},
		{"too early", schedule.GateActionIn, day, false, false, at(5, 30), false, schedule.GateReasonTooEarly},
		{"window boundary inclusive", schedule.GateActionIn, day, false, false, at(6, 0), true, schedule.GateReasonNone},
		{"late clock in allowed", schedule.GateActionIn, day, false, false, at(11, 0), true, schedule.GateReasonNone},
		{"night shift OUT bypasses window", schedule.GateActionOut, night, false, true, at(3, 0), true, schedule.GateReasonNone},
		{"day shift OUT late", schedule.GateActionOut, day, false, true, at(23, 0), true, schedule.GateReasonNone},
		{"night shift IN", schedule.GateActionIn, night, false, false, at(21, 30), true, schedule.GateReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateScheduleGate(tt.action, tt.sched, tt.loadFailed, tt.active, tt.now)
			assert.Equal(t, tt.allowed, got.Allowed)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.reason != schedule.GateReasonTooEarly {
				assert.Nil(t, got.EarliestAllowed)
			}
		})
	}
}

func TestEvaluateScheduleGate_EarliestAllowed(t *testing.T) {
	now := time.Date(2024, 1, 15, 5, 30, 0, 0, time.UTC)
	got := EvaluateScheduleGate(schedule.GateActionIn, &schedule.Schedule{ScheduledTimeIn: "07:00:00", ScheduledTimeOut: "16:00:00"}, false, false, now)

	require.NotNil(t, got.EarliestAllowed)
	assert.Equal(t, time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC), *got.EarliestAllowed)

	var tooEarly *schedule.TooEarlyError
	require.ErrorAs(t, got.Err(), &tooEarly)
	assert.ErrorIs(t, got.Err(), schedule.ErrTooEarly)
	assert.Equal(t, *got.EarliestAllowed, tooEarly.EarliestAllowed)
}
