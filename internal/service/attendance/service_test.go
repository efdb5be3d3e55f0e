package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/snapshot"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/submit"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmployeeID = "0192f1a4-7c1e-7a5b-9c3d-2e4f5a6b7c8d"

type fakeSource struct {
	mu          sync.Mutex
	records     []attendance.DailyRecord
	recordsErr  error
	sched       *schedule.Schedule
	schedErr    error
	active      *attendance.ActiveSession
	entries     []attendance.EntryRequest
	listCalls   int
	beforeEntry func()
}

func (f *fakeSource) ListDailyRecords(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.records, f.recordsErr
}

func (f *fakeSource) GetTodaySchedule(ctx context.Context, employeeID string, day time.Time) (*schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sched, f.schedErr
}

func (f *fakeSource) GetActiveSession(ctx context.Context, employeeID string) (*attendance.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeSource) RecordEntry(ctx context.Context, req attendance.EntryRequest) (attendance.RawEntry, error) {
	if f.beforeEntry != nil {
		f.beforeEntry()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, req)
	if req.Type == attendance.EntryTypeTimeIn {
		f.active = &attendance.ActiveSession{StartTime: req.OccurredAt}
	} else {
		f.active = nil
	}
	return attendance.RawEntry{
		Type:      req.Type,
		EventTime: req.OccurredAt.Format(time.RFC3339),
		Timestamp: req.OccurredAt,
	}, nil
}

func withEmployee(t *testing.T, employeeID string) context.Context {
	t.Helper()
	auth := jwtauth.New("HS256", []byte("test-secret-key-for-jwt"), nil)
	token, _, err := auth.Encode(map[string]interface{}{"employee_id": employeeID, "role": "employee"})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func newTestService(src *fakeSource, now time.Time) (*AttendanceServiceImpl, *sse.Hub) {
	hub := sse.NewHub(10)
	svc := NewAttendanceService(src, snapshot.NewStore(nil), submit.NewGuard(), hub, Options{
		Location:    time.UTC,
		HistoryDays: 7,
		Now:         func() time.Time { return now },
	})
	return svc, hub
}

func officeSchedule() *schedule.Schedule {
	return &schedule.Schedule{
		ScheduleName:     "Office",
		ScheduledTimeIn:  "08:00:00",
		ScheduledTimeOut: "17:00:00",
		LocationType:     schedule.WorkArrangementWFO,
		Locations: []schedule.Geofence{
			{Name: "HQ", Latitude: -6.1754, Longitude: 106.8272, RadiusMeters: 100},
		},
	}
}

func ptr(f float64) *float64 { return &f }

func TestDashboard_DerivesAllViews(t *testing.T) {
	now := time.Date(2024, 1, 16, 5, 0, 0, 0, time.UTC)
	src := &fakeSource{
		records: []attendance.DailyRecord{
			dayRecord("2024-01-16", "-", "00:21", "09:00", "17:00"),
			dayRecord("2024-01-15", "21:41", "-", "22:00", "07:00"),
		},
		sched: officeSchedule(),
	}
	svc, _ := newTestService(src, now)

	resp, err := svc.Dashboard(withEmployee(t, testEmployeeID))
	require.NoError(t, err)

	assert.Equal(t, testEmployeeID, resp.EmployeeID)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, string(attendance.MergeRoleNightShiftHead), resp.Records[0].Role)
	assert.Equal(t, "00:21 (2024-01-16)", resp.Records[0].DisplayTimeOut)
	require.NotNil(t, resp.Records[0].ConsumedNextDayTimeout)
	assert.True(t, resp.Records[1].HasPreviousNightshiftTimeout)

	require.Len(t, resp.Sessions, 1)
	assert.True(t, resp.Sessions[0].SpansMidnight)
	assert.Equal(t, 160, resp.Sessions[0].DurationMinutes)

	assert.False(t, resp.ClockIn.Allowed)
	assert.Equal(t, string(schedule.GateReasonTooEarly), resp.ClockIn.Reason)
	require.NotNil(t, resp.ClockIn.EarliestAllowed)
	assert.Equal(t, "2024-01-16T07:00:00Z", *resp.ClockIn.EarliestAllowed)
	assert.True(t, resp.ClockOut.Allowed)

	require.NotNil(t, resp.Schedule)
	assert.False(t, resp.Schedule.IsNightShift)
	assert.Nil(t, resp.ActiveSession)

	// Second read within the freshness window uses the snapshot.
	_, err = svc.Dashboard(withEmployee(t, testEmployeeID))
	require.NoError(t, err)
	assert.Equal(t, 1, src.listCalls)
}

func TestDashboard_MissingEmployeeClaim(t *testing.T) {
	svc, _ := newTestService(&fakeSource{}, time.Now())

	_, err := svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, attendance.ErrMissingEmployeeClaim)
}

func TestDashboard_ScheduleLoadFailureIsAGateReason(t *testing.T) {
	src := &fakeSource{schedErr: errors.New("upstream 500")}
	svc, _ := newTestService(src, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))

	resp, err := svc.Dashboard(withEmployee(t, testEmployeeID))
	require.NoError(t, err)
	assert.Equal(t, string(schedule.GateReasonScheduleLoadError), resp.ClockIn.Reason)
	assert.Equal(t, string(schedule.GateReasonScheduleLoadError), resp.ClockOut.Reason)
	assert.Nil(t, resp.Schedule)
}

func TestDashboard_RecordsUnavailable(t *testing.T) {
	src := &fakeSource{recordsErr: errors.New("connection refused")}
	svc, _ := newTestService(src, time.Now())

	_, err := svc.Dashboard(withEmployee(t, testEmployeeID))
	assert.ErrorIs(t, err, attendance.ErrRecordsUnavailable)
}

func TestDashboard_ServesStaleSnapshotWhenRefreshFails(t *testing.T) {
	now := time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)
	src := &fakeSource{
		records: []attendance.DailyRecord{dayRecord("2024-01-15", "08:00", "17:00", "08:00", "17:00")},
		sched:   officeSchedule(),
	}
	svc, _ := newTestService(src, now)

	ctx := withEmployee(t, testEmployeeID)
	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	svc.store.Invalidate(testEmployeeID)
	src.recordsErr = errors.New("timeout")

	resp, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, resp.Records, 1)
}

func TestTeamMemberDashboard_RequiresEmployeeID(t *testing.T) {
	svc, _ := newTestService(&fakeSource{}, time.Now())

	_, err := svc.TeamMemberDashboard(context.Background(), " ")
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestEvaluateGate(t *testing.T) {
	src := &fakeSource{active: &attendance.ActiveSession{StartTime: time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)}}
	svc, _ := newTestService(src, time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC))
	ctx := withEmployee(t, testEmployeeID)

	resp, err := svc.EvaluateGate(ctx, schedule.GateActionOut)
	require.NoError(t, err)
	assert.True(t, resp.Allowed)
	assert.Equal(t, "OUT", resp.Action)

	resp, err = svc.EvaluateGate(ctx, schedule.GateActionIn)
	require.NoError(t, err)
	assert.False(t, resp.Allowed)
	assert.Equal(t, string(schedule.GateReasonNoSchedule), resp.Reason)
	assert.NotEmpty(t, resp.Message)

	_, err = svc.EvaluateGate(ctx, "SIDEWAYS")
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestClockIn_Success(t *testing.T) {
	now := time.Date(2024, 1, 16, 7, 45, 0, 0, time.UTC)
	src := &fakeSource{sched: officeSchedule()}
	svc, hub := newTestService(src, now)

	events, cleanup := hub.Subscribe(testEmployeeID)
	defer cleanup()

	resp, err := svc.ClockIn(withEmployee(t, testEmployeeID), attendance.ClockRequest{
		Latitude:  ptr(-6.1755),
		Longitude: ptr(106.8272),
		Accuracy:  15,
	})
	require.NoError(t, err)

	assert.Equal(t, "TIME_IN", resp.EntryType)
	assert.Equal(t, "07:45", resp.FormattedDisplay)
	assert.True(t, resp.Gate.Allowed)
	require.NotNil(t, resp.LocationName)
	assert.Equal(t, "HQ", *resp.LocationName)

	require.Len(t, src.entries, 1)
	assert.Equal(t, testEmployeeID, src.entries[0].EmployeeID)
	assert.NotEmpty(t, src.entries[0].IdempotencyKey)
	assert.Equal(t, now, src.entries[0].OccurredAt)

	select {
	case ev := <-events:
		assert.Equal(t, sse.EventClock, ev.Event)
	default:
		t.Fatal("expected clock event")
	}

	snap, ok := svc.store.Get(testEmployeeID)
	require.True(t, ok)
	assert.True(t, snap.HasActiveSession())
}

func TestClockIn_Denials(t *testing.T) {
	ctx := withEmployee(t, testEmployeeID)
	near := attendance.ClockRequest{Latitude: ptr(-6.1755), Longitude: ptr(106.8272)}

	t.Run("too early", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{sched: officeSchedule()}, time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC))
		_, err := svc.ClockIn(ctx, near)
		var tooEarly *schedule.TooEarlyError
		require.ErrorAs(t, err, &tooEarly)
		assert.Equal(t, time.Date(2024, 1, 16, 7, 0, 0, 0, time.UTC), tooEarly.EarliestAllowed)
	})

	t.Run("schedule load error", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{schedErr: errors.New("boom")}, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))
		_, err := svc.ClockIn(ctx, near)
		assert.ErrorIs(t, err, schedule.ErrScheduleLoad)
	})

	t.Run("outside radius", func(t *testing.T) {
		src := &fakeSource{sched: officeSchedule()}
		svc, _ := newTestService(src, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))
		_, err := svc.ClockIn(ctx, attendance.ClockRequest{Latitude: ptr(-6.3), Longitude: ptr(106.8272)})
		assert.ErrorIs(t, err, attendance.ErrOutsideAllowedRadius)
		assert.Empty(t, src.entries)
	})

	t.Run("location permission denied", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{sched: officeSchedule()}, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))
		_, err := svc.ClockIn(ctx, attendance.ClockRequest{LocationError: "permission_denied"})
		assert.ErrorIs(t, err, geo.ErrPermissionDenied)
	})

	t.Run("already checked in", func(t *testing.T) {
		src := &fakeSource{sched: officeSchedule(), active: &attendance.ActiveSession{}}
		svc, _ := newTestService(src, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))
		_, err := svc.ClockIn(ctx, near)
		assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	})

	t.Run("invalid request", func(t *testing.T) {
		svc, _ := newTestService(&fakeSource{}, time.Now())
		_, err := svc.ClockIn(ctx, attendance.ClockRequest{Latitude: ptr(120), Longitude: ptr(0)})
		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})
}

func TestClockOut_WithoutScheduleOrSession(t *testing.T) {
	svc, _ := newTestService(&fakeSource{}, time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC))

	_, err := svc.ClockOut(withEmployee(t, testEmployeeID), attendance.ClockRequest{Latitude: ptr(0), Longitude: ptr(0)})
	assert.ErrorIs(t, err, schedule.ErrNoScheduleNoSession)
}

func TestClockOut_NightShiftWithoutSchedule(t *testing.T) {
	src := &fakeSource{active: &attendance.ActiveSession{StartTime: time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)}}
	svc, _ := newTestService(src, time.Date(2024, 1, 16, 2, 0, 0, 0, time.UTC))

	resp, err := svc.ClockOut(withEmployee(t, testEmployeeID), attendance.ClockRequest{Latitude: ptr(0), Longitude: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, "TIME_OUT", resp.EntryType)
	assert.Nil(t, resp.DistanceMeters)
}

func TestClock_RejectsConcurrentSubmission(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{
		sched: officeSchedule(),
		beforeEntry: func() {
			close(entered)
			<-release
		},
	}
	svc, _ := newTestService(src, time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC))
	ctx := withEmployee(t, testEmployeeID)
	req := attendance.ClockRequest{Latitude: ptr(-6.1755), Longitude: ptr(106.8272)}

	done := make(chan error, 1)
	go func() {
		_, err := svc.ClockIn(ctx, req)
		done <- err
	}()

	<-entered
	_, err := svc.ClockIn(ctx, req)
	assert.ErrorIs(t, err, attendance.ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, svc.guard.InFlight(testEmployeeID))
}

func TestListRecords(t *testing.T) {
	src := &fakeSource{records: []attendance.DailyRecord{
		dayRecord("2024-01-15", "21:41", "-", "22:00", "07:00"),
		dayRecord("2024-01-16", "-", "00:21", "09:00", "17:00"),
	}}
	svc, _ := newTestService(src, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	ctx := withEmployee(t, testEmployeeID)

	resp, err := svc.ListRecords(ctx, attendance.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-14", resp.StartDate)
	assert.Equal(t, "2024-01-20", resp.EndDate)
	assert.Len(t, resp.Records, 2)

	start, end := "2023-01-01", "2024-06-01"
	_, err = svc.ListRecords(ctx, attendance.RecordFilter{StartDate: &start, EndDate: &end})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}
