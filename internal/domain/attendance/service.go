package attendance

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

// AttendanceService defines the attendance portal operations
type AttendanceService interface {
	// Dashboard derives the authenticated employee's dashboard from the latest snapshot
	Dashboard(ctx context.Context) (DashboardResponse, error)

	// TeamMemberDashboard derives the dashboard of another employee (team leader view)
	TeamMemberDashboard(ctx context.Context, employeeID string) (DashboardResponse, error)

	// ListRecords returns merged daily records for a date range
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordsResponse, error)

	// EvaluateGate decides whether a clock action is currently permitted
	EvaluateGate(ctx context.Context, action schedule.GateAction) (GateResponse, error)

	// ClockIn records a TIME_IN after gate and geofence checks
	ClockIn(ctx context.Context, req ClockRequest) (ClockResponse, error)

	// ClockOut records a TIME_OUT after gate and geofence checks
	ClockOut(ctx context.Context, req ClockRequest) (ClockResponse, error)

	// Refresh refetches an employee's snapshot (used by the poller)
	Refresh(ctx context.Context, employeeID string, parts RefreshParts) error
}

// RefreshParts selects which resources a refresh fetches.
type RefreshParts struct {
	Records  bool
	Schedule bool
}
