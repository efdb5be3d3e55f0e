package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

// EntryRequest asks the source to record one clock event.
type EntryRequest struct {
	EmployeeID     string
	Type           EntryType
	Latitude       float64
	Longitude      float64
	Accuracy       float64
	OccurredAt     time.Time
	IdempotencyKey string
}

// Source is where attendance data comes from: the upstream attendance API or
// the HRIS database. Implementations return fresh data on every call.
type Source interface {
	// ListDailyRecords returns one record per calendar day in [from, to].
	ListDailyRecords(ctx context.Context, employeeID string, from, to time.Time) ([]DailyRecord, error)

	// GetTodaySchedule returns nil, nil when no schedule is assigned for day.
	GetTodaySchedule(ctx context.Context, employeeID string, day time.Time) (*schedule.Schedule, error)

	// GetActiveSession returns nil, nil when no session is open.
	GetActiveSession(ctx context.Context, employeeID string) (*ActiveSession, error)

	// RecordEntry creates a new clock event.
	RecordEntry(ctx context.Context, req EntryRequest) (RawEntry, error)
}
