package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/snapshot"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/submit"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
)

// maxRecordRangeDays caps ListRecords so a single request cannot pull years of history.
const maxRecordRangeDays = 366

type Options struct {
	Location      *time.Location
	HistoryDays   int
	StaleAfter    time.Duration
	LocateTimeout time.Duration
	Now           func() time.Time
}

type AttendanceServiceImpl struct {
	source        attendance.Source
	store         *snapshot.Store
	guard         *submit.Guard
	hub           *sse.Hub
	loc           *time.Location
	historyDays   int
	staleAfter    time.Duration
	locateTimeout time.Duration
	now           func() time.Time
}

func NewAttendanceService(source attendance.Source, store *snapshot.Store, guard *submit.Guard, hub *sse.Hub, opts Options) *AttendanceServiceImpl {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Second
	}
	if opts.LocateTimeout <= 0 {
		opts.LocateTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AttendanceServiceImpl{
		source:        source,
		store:         store,
		guard:         guard,
		hub:           hub,
		loc:           opts.Location,
		historyDays:   opts.HistoryDays,
		staleAfter:    opts.StaleAfter,
		locateTimeout: opts.LocateTimeout,
		now:           opts.Now,
	}
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)

func employeeIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	employeeID, ok := claims["employee_id"].(string)
	if !ok || employeeID == "" {
		return "", attendance.ErrMissingEmployeeClaim
	}
	return employeeID, nil
}

func (a *AttendanceServiceImpl) localNow() time.Time {
	return a.now().In(a.loc)
}

// Dashboard implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Dashboard(ctx context.Context) (attendance.DashboardResponse, error) {
	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.DashboardResponse{}, err
	}
	return a.dashboardFor(ctx, employeeID)
}

// TeamMemberDashboard implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) TeamMemberDashboard(ctx context.Context, employeeID string) (attendance.DashboardResponse, error) {
	if validator.IsEmpty(employeeID) {
		return attendance.DashboardResponse{}, validator.ValidationErrors{
			{Field: "employee_id", Message: "employee_id is required"},
		}
	}
	return a.dashboardFor(ctx, employeeID)
}

func (a *AttendanceServiceImpl) dashboardFor(ctx context.Context, employeeID string) (attendance.DashboardResponse, error) {
	snap, err := a.snapshotFor(ctx, employeeID)
	if err != nil {
		return attendance.DashboardResponse{}, err
	}
	return a.buildDashboard(snap, a.localNow()), nil
}

// ListRecords implements attendance.AttendanceService. It always reads the
// source directly since the range may fall outside the cached history.
func (a *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) (attendance.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	from, to := a.historyRange()
	if filter.StartDate != nil && *filter.StartDate != "" {
		from, _ = time.ParseInLocation(dateLayout, *filter.StartDate, a.loc)
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		to, _ = time.ParseInLocation(dateLayout, *filter.EndDate, a.loc)
	}
	if to.Before(from) {
		from = to.AddDate(0, 0, -(a.historyDays - 1))
	}
	if to.Sub(from) > maxRecordRangeDays*24*time.Hour {
		return attendance.ListRecordsResponse{}, validator.ValidationErrors{
			{Field: "start_date", Message: fmt.Sprintf("date range must not exceed %d days", maxRecordRangeDays)},
		}
	}

	records, err := a.source.ListDailyRecords(ctx, employeeID, from, to)
	if err != nil {
		return attendance.ListRecordsResponse{}, fmt.Errorf("%w: %w", attendance.ErrRecordsUnavailable, err)
	}

	return attendance.ListRecordsResponse{
		StartDate: from.Format(dateLayout),
		EndDate:   to.Format(dateLayout),
		Records:   mapMergedRecords(MergeNightShifts(LocalizeRecords(records, a.loc))),
	}, nil
}

// EvaluateGate implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) EvaluateGate(ctx context.Context, action schedule.GateAction) (attendance.GateResponse, error) {
	if !validator.IsInSlice(string(action), schedule.GateActionValues) {
		return attendance.GateResponse{}, validator.ValidationErrors{
			{Field: "action", Message: "action must be one of: IN, OUT"},
		}
	}

	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.GateResponse{}, err
	}

	snap, err := a.snapshotFor(ctx, employeeID)
	if err != nil {
		return attendance.GateResponse{}, err
	}

	decision := EvaluateScheduleGate(action, snap.Schedule, snap.ScheduleLoadFailed, snap.HasActiveSession(), a.localNow())
	return mapGate(action, decision), nil
}

// ClockIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockRequest) (attendance.ClockResponse, error) {
	return a.clock(ctx, schedule.GateActionIn, req)
}

// ClockOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ClockOut(ctx context.Context, req attendance.ClockRequest) (attendance.ClockResponse, error) {
	return a.clock(ctx, schedule.GateActionOut, req)
}

func (a *AttendanceServiceImpl) clock(ctx context.Context, action schedule.GateAction, req attendance.ClockRequest) (attendance.ClockResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClockResponse{}, err
	}

	employeeID, err := employeeIDFromContext(ctx)
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	token, ok := a.guard.Acquire(employeeID)
	if !ok {
		return attendance.ClockResponse{}, attendance.ErrSubmissionInFlight
	}
	defer token.Release()

	// The gate must see the current schedule and session, not a cached one.
	if err := a.Refresh(ctx, employeeID, attendance.RefreshParts{Records: true, Schedule: true}); err != nil {
		if !errors.Is(err, schedule.ErrScheduleLoad) {
			return attendance.ClockResponse{}, err
		}
	}
	snap, _ := a.store.Get(employeeID)

	now := a.localNow()
	decision := EvaluateScheduleGate(action, snap.Schedule, snap.ScheduleLoadFailed, snap.HasActiveSession(), now)
	if !decision.Allowed {
		slog.Info("Clock action denied", "employee_id", employeeID, "action", action, "reason", decision.Reason)
		return attendance.ClockResponse{}, decision.Err()
	}

	if action == schedule.GateActionIn && snap.HasActiveSession() {
		return attendance.ClockResponse{}, attendance.ErrAlreadyCheckedIn
	}
	if action == schedule.GateActionOut && !snap.HasActiveSession() {
		return attendance.ClockResponse{}, attendance.ErrNotCheckedIn
	}

	pos, err := geo.Locate(ctx, geo.Reported(req.Latitude, req.Longitude, req.Accuracy, req.LocationError), a.locateTimeout)
	if err != nil {
		return attendance.ClockResponse{}, err
	}

	resp := attendance.ClockResponse{Gate: mapGate(action, decision)}
	if snap.Schedule != nil && snap.Schedule.LocationType != schedule.WorkArrangementWFA {
		if match, found := geo.Nearest(pos, snap.Schedule.Locations); found {
			distance := match.Distance
			name := match.Fence.Name
			resp.DistanceMeters = &distance
			resp.LocationName = &name
			if !match.Inside {
				return attendance.ClockResponse{}, attendance.ErrOutsideAllowedRadius
			}
		}
	}

	entryType := attendance.EntryTypeTimeIn
	if action == schedule.GateActionOut {
		entryType = attendance.EntryTypeTimeOut
	}

	entry, err := a.source.RecordEntry(ctx, attendance.EntryRequest{
		EmployeeID:     employeeID,
		Type:           entryType,
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		Accuracy:       pos.Accuracy,
		OccurredAt:     now,
		IdempotencyKey: token.ID(),
	})
	if err != nil {
		return attendance.ClockResponse{}, fmt.Errorf("failed to record %s: %w", entryType, err)
	}

	slog.Info("Clock entry recorded", "employee_id", employeeID, "entry_type", entryType, "event_time", entry.EventTime)

	resp.EntryType = string(entry.Type)
	resp.EventTime = entry.EventTime
	resp.FormattedDisplay = entry.FormattedDisplay
	if resp.FormattedDisplay == "" && !entry.Timestamp.IsZero() {
		resp.FormattedDisplay = entry.Timestamp.In(a.loc).Format("15:04")
	}

	a.store.Invalidate(employeeID)
	if err := a.Refresh(ctx, employeeID, attendance.RefreshParts{Records: true}); err != nil {
		slog.Warn("Refresh after clock entry failed", "employee_id", employeeID, "error", err)
	}
	if a.hub != nil {
		a.hub.Publish(employeeID, sse.Event{Event: sse.EventClock, Data: resp})
	}

	return resp, nil
}

// Refresh implements attendance.AttendanceService. A records failure leaves
// the previous snapshot in place; a schedule failure is committed as
// ScheduleLoadFailed so the gate denies with SCHEDULE_LOAD_ERROR.
func (a *AttendanceServiceImpl) Refresh(ctx context.Context, employeeID string, parts attendance.RefreshParts) error {
	var errs []error

	if parts.Records {
		if err := a.refreshRecords(ctx, employeeID); err != nil {
			errs = append(errs, err)
		}
	}
	if parts.Schedule {
		if err := a.refreshSchedule(ctx, employeeID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *AttendanceServiceImpl) refreshRecords(ctx context.Context, employeeID string) error {
	ticket := a.store.Begin(employeeID, snapshot.PartRecords)
	from, to := a.historyRange()

	records, err := a.source.ListDailyRecords(ctx, employeeID, from, to)
	if err != nil {
		return fmt.Errorf("%w: %w", attendance.ErrRecordsUnavailable, err)
	}
	active, err := a.source.GetActiveSession(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("%w: active session: %w", attendance.ErrRecordsUnavailable, err)
	}

	fetchedAt := a.now()
	if _, accepted := a.store.Commit(ticket, func(snap *attendance.Snapshot) {
		snap.Records = records
		snap.ActiveSession = active
		snap.FetchedAt = fetchedAt
	}); !accepted {
		slog.Debug("Dropped stale records fetch", "employee_id", employeeID, "generation", ticket.Generation)
	}
	return nil
}

func (a *AttendanceServiceImpl) refreshSchedule(ctx context.Context, employeeID string) error {
	ticket := a.store.Begin(employeeID, snapshot.PartSchedule)

	sched, fetchErr := a.source.GetTodaySchedule(ctx, employeeID, a.localNow())
	if fetchErr != nil {
		slog.Warn("Failed to load today's schedule", "employee_id", employeeID, "error", fetchErr)
	}

	if _, accepted := a.store.Commit(ticket, func(snap *attendance.Snapshot) {
		if fetchErr != nil {
			snap.Schedule = nil
			snap.ScheduleLoadFailed = true
			return
		}
		snap.Schedule = sched
		snap.ScheduleLoadFailed = false
	}); !accepted {
		slog.Debug("Dropped stale schedule fetch", "employee_id", employeeID, "generation", ticket.Generation)
	}

	if fetchErr != nil {
		return fmt.Errorf("%w: %w", schedule.ErrScheduleLoad, fetchErr)
	}
	return nil
}

// snapshotFor returns a fresh enough snapshot, refetching when needed. When
// the records fetch fails, a previously committed snapshot is served instead.
func (a *AttendanceServiceImpl) snapshotFor(ctx context.Context, employeeID string) (attendance.Snapshot, error) {
	snap, ok := a.store.Get(employeeID)
	if ok && a.now().Sub(snap.FetchedAt) < a.staleAfter {
		return snap, nil
	}

	err := a.Refresh(ctx, employeeID, attendance.RefreshParts{Records: true, Schedule: true})
	latest, committed := a.store.Get(employeeID)
	if err != nil && errors.Is(err, attendance.ErrRecordsUnavailable) {
		if latest.FetchedAt.IsZero() {
			return attendance.Snapshot{}, err
		}
		slog.Warn("Serving stale attendance snapshot", "employee_id", employeeID, "fetched_at", latest.FetchedAt, "error", err)
		return latest, nil
	}
	if !committed && latest.FetchedAt.IsZero() {
		return attendance.Snapshot{}, attendance.ErrRecordsUnavailable
	}
	return latest, nil
}

// historyRange is the default [from, to] window, both at local midnight.
func (a *AttendanceServiceImpl) historyRange() (time.Time, time.Time) {
	now := a.localNow()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	return to.AddDate(0, 0, -(a.historyDays - 1)), to
}
