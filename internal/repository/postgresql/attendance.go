package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/shift"
	"github.com/jackc/pgx/v5"
)

// attendanceSource reads attendance straight from the HRIS schema. One row in
// attendances is one clock-in/clock-out session; rows are split into per-day
// records on the employee's branch timezone, the same shape the attendance
// API returns.
type attendanceSource struct {
	db         *database.DB
	defaultLoc *time.Location
	now        func() time.Time
}

func NewAttendanceSource(db *database.DB, defaultLoc *time.Location) attendance.Source {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &attendanceSource{db: db, defaultLoc: defaultLoc, now: time.Now}
}

// sessionRow is one attendances row.
type sessionRow struct {
	ClockIn  time.Time
	ClockOut *time.Time
	Status   string
}

// scheduleTimes holds one work_schedule_times row as "HH:MM:SS" strings.
type scheduleTimes struct {
	ClockIn  string
	ClockOut string
}

func (a *attendanceSource) location(ctx context.Context, employeeID string) (*time.Location, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT COALESCE(b.timezone, '')
		FROM employees e
		LEFT JOIN branches b ON b.id = e.branch_id
		WHERE e.id = $1
	`

	var tz string
	if err := q.QueryRow(ctx, query, employeeID).Scan(&tz); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee timezone: %w", err)
	}
	if tz == "" {
		return a.defaultLoc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("Unknown branch timezone, using default", "employee_id", employeeID, "timezone", tz, "error", err)
		return a.defaultLoc, nil
	}
	return loc, nil
}

// ListDailyRecords implements attendance.Source.
func (a *attendanceSource) ListDailyRecords(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyRecord, error) {
	loc, err := a.location(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	q := GetQuerier(ctx, a.db)

	// Sessions starting the day before the range can still end inside it.
	query := `
		SELECT clock_in, clock_out, status
		FROM attendances
		WHERE employee_id = $1
		  AND date BETWEEN $2::date - 1 AND $3::date
		  AND clock_in IS NOT NULL
		ORDER BY clock_in ASC
	`

	rows, err := q.Query(ctx, query, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	var sessions []sessionRow
	for rows.Next() {
		var s sessionRow
		if err := rows.Scan(&s.ClockIn, &s.ClockOut, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	weekly, err := a.weeklySchedule(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	return bucketByDay(sessions, weekly, from, to, loc), nil
}

// weeklySchedule returns the employee's default schedule keyed by ISO day of
// week (1 = Monday).
func (a *attendanceSource) weeklySchedule(ctx context.Context, employeeID string) (map[int]scheduleTimes, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT wst.day_of_week,
		       to_char(wst.clock_in_time, 'HH24:MI:SS'),
		       to_char(wst.clock_out_time, 'HH24:MI:SS')
		FROM employees e
		JOIN work_schedules ws ON ws.id = e.work_schedule_id AND ws.deleted_at IS NULL
		JOIN work_schedule_times wst ON wst.work_schedule_id = ws.id
		WHERE e.id = $1
	`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly schedule: %w", err)
	}
	defer rows.Close()

	weekly := make(map[int]scheduleTimes)
	for rows.Next() {
		var dow int
		var st scheduleTimes
		if err := rows.Scan(&dow, &st.ClockIn, &st.ClockOut); err != nil {
			return nil, fmt.Errorf("failed to scan schedule time: %w", err)
		}
		weekly[dow] = st
	}
	return weekly, rows.Err()
}

// bucketByDay builds one record per local date in [from, to]. Each clock
// event lands on the date it happened, so a night shift's clock-out shows up
// on the following day's record.
func bucketByDay(sessions []sessionRow, weekly map[int]scheduleTimes, from, to time.Time, loc *time.Location) []attendance.DailyRecord {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	var records []attendance.DailyRecord
	index := make(map[string]int)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		st := weekly[isoWeekday(d)]
		rec := attendance.DailyRecord{
			Date:         d.Format("2006-01-02"),
			Day:          d.Weekday().String(),
			Status:       shift.Placeholder,
			TimeIn:       shift.Placeholder,
			TimeOut:      shift.Placeholder,
			ScheduledIn:  placeholderIfEmpty(st.ClockIn),
			ScheduledOut: placeholderIfEmpty(st.ClockOut),
		}
		index[rec.Date] = len(records)
		records = append(records, rec)
	}

	add := func(entryType attendance.EntryType, at time.Time, status string) {
		local := at.In(loc)
		i, ok := index[local.Format("2006-01-02")]
		if !ok {
			return
		}
		records[i].Entries = append(records[i].Entries, attendance.RawEntry{
			Type:             entryType,
			EventTime:        local.Format(time.RFC3339),
			Timestamp:        local,
			FormattedDisplay: local.Format("15:04"),
		})
		if entryType == attendance.EntryTypeTimeIn && status != "" {
			records[i].Status = status
		}
	}

	for _, s := range sessions {
		add(attendance.EntryTypeTimeIn, s.ClockIn, s.Status)
		if s.ClockOut != nil {
			add(attendance.EntryTypeTimeOut, *s.ClockOut, "")
		}
	}

	for i := range records {
		entries := records[i].Entries
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].Timestamp.Before(entries[b].Timestamp) })
		for _, e := range entries {
			switch e.Type {
			case attendance.EntryTypeTimeIn:
				if records[i].TimeIn == shift.Placeholder {
					records[i].TimeIn = e.FormattedDisplay
				}
			case attendance.EntryTypeTimeOut:
				records[i].TimeOut = e.FormattedDisplay
			}
		}
	}
	return records
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func placeholderIfEmpty(s string) string {
	if s == "" {
		return shift.Placeholder
	}
	return s
}

// GetTodaySchedule implements attendance.Source. An assignment covering day
// takes priority over the employee's default schedule.
func (a *attendanceSource) GetTodaySchedule(ctx context.Context, employeeID string, day time.Time) (*schedule.Schedule, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		WITH target_schedule AS (
		    SELECT COALESCE(
		        (
		            SELECT work_schedule_id
		            FROM employee_schedule_assignments
		            WHERE employee_id = $1
		              AND $2::date BETWEEN start_date AND end_date
		            LIMIT 1
		        ),
		        (
		            SELECT work_schedule_id
		            FROM employees
		            WHERE id = $1
		        )
		    ) AS id
		)
		SELECT
		    ws.name,
		    ws.grace_period_minutes,
		    ws.type,
		    to_char(wst.clock_in_time, 'HH24:MI:SS'),
		    to_char(wst.clock_out_time, 'HH24:MI:SS'),
		    wst.is_next_day_checkout,
		    COALESCE(
		        (
		            SELECT json_agg(json_build_object(
		                'name', wsl.location_name,
		                'latitude', wsl.latitude,
		                'longitude', wsl.longitude,
		                'radius_meters', wsl.radius_meters
		            ))
		            FROM work_schedule_locations wsl
		            WHERE wsl.work_schedule_id = ws.id
		        ),
		        '[]'::json
		    )
		FROM target_schedule ts
		JOIN work_schedules ws ON ws.id = ts.id
		JOIN work_schedule_times wst ON wst.work_schedule_id = ws.id
		    AND wst.day_of_week = EXTRACT(ISODOW FROM $2::date)::int
		WHERE ws.deleted_at IS NULL
	`

	var (
		sched         schedule.Schedule
		locationType  string
		locationsJSON []byte
	)
	err := q.QueryRow(ctx, query, employeeID, day.Format("2006-01-02")).Scan(
		&sched.ScheduleName,
		&sched.GracePeriodMinutes,
		&locationType,
		&sched.ScheduledTimeIn,
		&sched.ScheduledTimeOut,
		&sched.IsNightShift,
		&locationsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get today's schedule: %w", err)
	}

	sched.LocationType = schedule.WorkArrangement(locationType)
	if err := json.Unmarshal(locationsJSON, &sched.Locations); err != nil {
		return nil, fmt.Errorf("failed to decode schedule locations: %w", err)
	}
	return &sched, nil
}

// GetActiveSession implements attendance.Source.
func (a *attendanceSource) GetActiveSession(ctx context.Context, employeeID string) (*attendance.ActiveSession, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT a.clock_in,
		       COALESCE(to_char(wst.clock_out_time, 'HH24:MI:SS'), ''),
		       COALESCE(wst.is_next_day_checkout, false)
		FROM attendances a
		LEFT JOIN work_schedule_times wst ON wst.id = a.work_schedule_time_id
		WHERE a.employee_id = $1
		  AND a.clock_out IS NULL
		ORDER BY a.clock_in DESC
		LIMIT 1
	`

	var (
		clockIn         time.Time
		scheduledOut    string
		nextDayCheckout bool
	)
	if err := q.QueryRow(ctx, query, employeeID).Scan(&clockIn, &scheduledOut, &nextDayCheckout); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	now := a.now()
	session := &attendance.ActiveSession{
		StartTime:       clockIn,
		CurrentDuration: now.Sub(clockIn),
	}
	if out, err := shift.Parse(scheduledOut); err == nil {
		loc, locErr := a.location(ctx, employeeID)
		if locErr != nil {
			loc = a.defaultLoc
		}
		day := clockIn.In(loc)
		if nextDayCheckout {
			day = day.AddDate(0, 0, 1)
		}
		session.IsOvertime = now.After(out.On(day))
	}
	return session, nil
}

// RecordEntry implements attendance.Source. The open-session check makes a
// repeated submission fail instead of creating a second row.
func (a *attendanceSource) RecordEntry(ctx context.Context, req attendance.EntryRequest) (attendance.RawEntry, error) {
	loc, err := a.location(ctx, req.EmployeeID)
	if err != nil {
		return attendance.RawEntry{}, err
	}

	var recorded time.Time
	err = WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		var openID string
		err := q.QueryRow(ctx, `
			SELECT id FROM attendances
			WHERE employee_id = $1 AND clock_out IS NULL
			ORDER BY clock_in DESC
			LIMIT 1
			FOR UPDATE
		`, req.EmployeeID).Scan(&openID)
		hasOpen := err == nil
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to lock open session: %w", err)
		}

		switch req.Type {
		case attendance.EntryTypeTimeIn:
			if hasOpen {
				return attendance.ErrAlreadyCheckedIn
			}
			return q.QueryRow(ctx, `
				INSERT INTO attendances (
					employee_id, company_id, date, clock_in,
					clock_in_latitude, clock_in_longitude, status
				)
				SELECT e.id, e.company_id, $2::date, $3, $4, $5, 'PRESENT'
				FROM employees e
				WHERE e.id = $1
				RETURNING clock_in
			`, req.EmployeeID, req.OccurredAt.In(loc).Format("2006-01-02"), req.OccurredAt, req.Latitude, req.Longitude).Scan(&recorded)
		case attendance.EntryTypeTimeOut:
			if !hasOpen {
				return attendance.ErrNotCheckedIn
			}
			return q.QueryRow(ctx, `
				UPDATE attendances
				SET clock_out = $2,
				    clock_out_latitude = $3,
				    clock_out_longitude = $4,
				    work_hours_in_minutes = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2 - clock_in)) / 60))::int,
				    updated_at = NOW()
				WHERE id = $1
				RETURNING clock_out
			`, openID, req.OccurredAt, req.Latitude, req.Longitude).Scan(&recorded)
		default:
			return fmt.Errorf("unknown entry type %q", req.Type)
		}
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.RawEntry{}, attendance.ErrEmployeeNotFound
		}
		return attendance.RawEntry{}, err
	}

	local := recorded.In(loc)
	return attendance.RawEntry{
		Type:             req.Type,
		EventTime:        local.Format(time.RFC3339),
		Timestamp:        local,
		FormattedDisplay: local.Format("15:04"),
	}, nil
}
