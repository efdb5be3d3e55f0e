package timeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, cacheTTL time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(context.Background(), Config{
		BaseURL:    srv.URL,
		Token:      "secret-token",
		Timeout:    2 * time.Second,
		CacheTTL:   cacheTTL,
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func TestListDailyRecords(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/attendance/records", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "emp-1", r.URL.Query().Get("employee_id"))
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-01-16", r.URL.Query().Get("end_date"))

		writeData(w, http.StatusOK, []map[string]any{
			{
				"date": "2024-01-15", "day": "Monday", "status": "PRESENT",
				"time_in": "21:41", "time_out": "-", "scheduled_in": "22:00", "scheduled_out": "07:00",
				"time_entries": []map[string]any{
					{"entry_type": "TIME_IN", "event_time": "2024-01-15T21:41:00+07:00", "formatted_display": "21:41"},
				},
			},
			{"date": "2024-01-16", "time_in": "-", "time_out": "00:21", "scheduled_in": "09:00", "scheduled_out": "17:00"},
		})
	}), 0)

	from := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	records, err := client.ListDailyRecords(context.Background(), "emp-1", from, to)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "21:41", records[0].TimeIn)
	require.Len(t, records[0].Entries, 1)
	assert.Equal(t, attendance.EntryTypeTimeIn, records[0].Entries[0].Type)
	assert.False(t, records[0].Entries[0].Timestamp.IsZero())
	assert.Equal(t, "00:21", records[1].TimeOut)
}

func TestListDailyRecords_ReadsEventTimesInEmployeeLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []map[string]any{
			{
				"date": "2024-01-15", "time_in": "-", "time_out": "-", "scheduled_in": "22:00", "scheduled_out": "07:00",
				"time_entries": []map[string]any{
					{"entry_type": "TIME_IN", "event_time": "2024-01-15T14:41:00Z"},
				},
			},
			{
				"date": "2024-01-16", "time_in": "-", "time_out": "-", "scheduled_in": "22:00", "scheduled_out": "07:00",
				"time_entries": []map[string]any{
					{"entry_type": "TIME_OUT", "event_time": "2024-01-15T17:21:00Z"},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	client := New(context.Background(), Config{BaseURL: srv.URL, Timeout: 2 * time.Second, Location: wib})

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, wib)
	records, err := client.ListDailyRecords(context.Background(), "emp-1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)

	in := records[0].Entries[0].Timestamp
	assert.Equal(t, wib, in.Location())
	assert.Equal(t, 21, in.Hour())
	assert.Equal(t, 41, in.Minute())

	out := records[1].Entries[0].Timestamp
	assert.Equal(t, 16, out.Day())
	assert.Equal(t, 0, out.Hour())
	assert.Equal(t, 21, out.Minute())
}

func TestGetTodaySchedule(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch status.Load() {
		case http.StatusOK:
			writeData(w, http.StatusOK, map[string]any{
				"scheduled_time_in": "22:00:00", "scheduled_time_out": "07:00:00", "is_night_shift": true,
				"location_type": "WFO",
				"locations":     []map[string]any{{"name": "HQ", "latitude": -6.2, "longitude": 106.8, "radius_meters": 100}},
			})
		case http.StatusNoContent:
			writeData(w, http.StatusOK, nil)
		default:
			writeData(w, int(status.Load()), nil)
		}
	}), 0)

	sched, err := client.GetTodaySchedule(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, "22:00:00", sched.ScheduledTimeIn)
	assert.True(t, sched.IsNightShift)
	require.Len(t, sched.Locations, 1)
	assert.Equal(t, 100, sched.Locations[0].RadiusMeters)

	status.Store(http.StatusNoContent)
	sched, err = client.GetTodaySchedule(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, sched)

	status.Store(http.StatusNotFound)
	sched, err = client.GetTodaySchedule(context.Background(), "emp-1", time.Now())
	require.NoError(t, err)
	assert.Nil(t, sched)

	status.Store(http.StatusBadRequest)
	_, err = client.GetTodaySchedule(context.Background(), "emp-1", time.Now())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestGetActiveSession(t *testing.T) {
	var open atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if open.Load() {
			writeData(w, http.StatusOK, map[string]any{"active_session": map[string]any{
				"start_time": "2024-01-15T22:00:00Z", "current_duration": 5400, "is_overtime": false,
			}})
			return
		}
		writeData(w, http.StatusOK, map[string]any{"active_session": nil})
	}), 0)

	session, err := client.GetActiveSession(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Nil(t, session)

	open.Store(true)
	session, err = client.GetActiveSession(context.Background(), "emp-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 90*time.Minute, session.CurrentDuration)
	assert.Equal(t, time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC), session.StartTime.UTC())
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeData(w, http.StatusServiceUnavailable, nil)
			return
		}
		writeData(w, http.StatusOK, []any{})
	}), 0)

	records, err := client.ListDailyRecords(context.Background(), "emp-1", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeData(w, http.StatusNotFound, nil)
	}), 0)

	_, err := client.ListDailyRecords(context.Background(), "emp-1", time.Now(), time.Now())
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_InvalidatedByRecordEntry(t *testing.T) {
	var gets atomic.Int32
	var gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			gotKey = r.Header.Get("Idempotency-Key")
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "TIME_IN", body["entry_type"])
			writeData(w, http.StatusCreated, map[string]any{
				"entry_type": "TIME_IN", "event_time": "2024-01-16T08:00:00Z", "formatted_display": "08:00",
			})
			return
		}
		gets.Add(1)
		writeData(w, http.StatusOK, map[string]any{"active_session": nil})
	}), time.Minute)

	ctx := context.Background()
	_, err := client.GetActiveSession(ctx, "emp-1")
	require.NoError(t, err)
	_, err = client.GetActiveSession(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), gets.Load())

	entry, err := client.RecordEntry(ctx, attendance.EntryRequest{
		EmployeeID:     "emp-1",
		Type:           attendance.EntryTypeTimeIn,
		OccurredAt:     time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC),
		IdempotencyKey: "key-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "08:00", entry.FormattedDisplay)
	assert.False(t, entry.Timestamp.IsZero())

	_, err = client.GetActiveSession(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())
}

func TestRecordEntry_ErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusConflict, nil)
	}), 0)

	_, err := client.RecordEntry(context.Background(), attendance.EntryRequest{EmployeeID: "emp-1", Type: attendance.EntryTypeTimeOut})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
}
