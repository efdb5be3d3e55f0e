package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
)

// Refresher reloads parts of an employee's snapshot.
type Refresher interface {
	Refresh(ctx context.Context, employeeID string, parts attendance.RefreshParts) error
}

// Tracker lists employees whose snapshots are kept warm.
type Tracker interface {
	Employees() []string
}

type AttendanceJobs struct {
	refresher        Refresher
	tracker          Tracker
	recordsInterval  time.Duration
	scheduleInterval time.Duration
}

func NewAttendanceJobs(refresher Refresher, tracker Tracker, recordsInterval, scheduleInterval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		refresher:        refresher,
		tracker:          tracker,
		recordsInterval:  recordsInterval,
		scheduleInterval: scheduleInterval,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("refresh_attendance_records", j.recordsInterval, j.RefreshRecords)
	scheduler.AddJob("refresh_schedules", j.scheduleInterval, j.RefreshSchedules)
}

// RefreshRecords reloads records and the active session for every tracked employee.
func (j *AttendanceJobs) RefreshRecords(ctx context.Context) error {
	return j.refreshAll(ctx, attendance.RefreshParts{Records: true})
}

// RefreshSchedules reloads today's schedule for every tracked employee.
func (j *AttendanceJobs) RefreshSchedules(ctx context.Context) error {
	return j.refreshAll(ctx, attendance.RefreshParts{Schedule: true})
}

func (j *AttendanceJobs) refreshAll(ctx context.Context, parts attendance.RefreshParts) error {
	employees := j.tracker.Employees()
	if len(employees) == 0 {
		return nil
	}

	var errs []error
	for _, id := range employees {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.refresher.Refresh(ctx, id, parts); err != nil {
			slog.Warn("Refresh failed", "employee_id", id, "records", parts.Records, "schedule", parts.Schedule, "error", err)
			errs = append(errs, fmt.Errorf("employee %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
