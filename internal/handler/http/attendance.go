package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type AttendanceHandler interface {
	Dashboard(w http.ResponseWriter, r *http.Request)
	TeamMemberDashboard(w http.ResponseWriter, r *http.Request)
	Records(w http.ResponseWriter, r *http.Request)
	Gate(w http.ResponseWriter, r *http.Request)
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)

	// SSE
	StreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

// EventStream is the push side the Stream endpoint subscribes to.
type EventStream interface {
	Subscribe(employeeID string) (<-chan sse.Event, func())
	SubscriberCount(employeeID string) int
}

// Tracker registers an employee with the background poller while they have
// an open stream.
type Tracker interface {
	Track(employeeID string)
	Forget(employeeID string)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	jwtService        jwt.Service
	events            EventStream
	tracker           Tracker
	keepalive         time.Duration
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, jwtService jwt.Service, events EventStream, tracker Tracker, keepalive time.Duration) AttendanceHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		jwtService:        jwtService,
		events:            events,
		tracker:           tracker,
		keepalive:         keepalive,
	}
}

// getEmployeeIDFromContext extracts employee_id from JWT context
func getEmployeeIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if employeeID, ok := claims["employee_id"].(string); ok {
		return employeeID
	}
	return ""
}

// Dashboard implements AttendanceHandler.
func (h *attendanceHandlerImpl) Dashboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.Dashboard(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// TeamMemberDashboard implements AttendanceHandler.
func (h *attendanceHandlerImpl) TeamMemberDashboard(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	result, err := h.attendanceService.TeamMemberDashboard(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Records implements AttendanceHandler.
func (h *attendanceHandlerImpl) Records(w http.ResponseWriter, r *http.Request) {
	filter := attendance.RecordFilter{}

	if startDate := r.URL.Query().Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}

	if endDate := r.URL.Query().Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	result, err := h.attendanceService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{
		StartDate: result.StartDate,
		EndDate:   result.EndDate,
		Total:     len(result.Records),
	})
}

// Gate implements AttendanceHandler.
func (h *attendanceHandlerImpl) Gate(w http.ResponseWriter, r *http.Request) {
	action := schedule.GateAction(strings.ToUpper(r.URL.Query().Get("action")))

	result, err := h.attendanceService.EvaluateGate(r.Context(), action)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeClockRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeClockRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// decodeClockRequest reads an optional JSON body. An empty body is a request
// without a reported position.
func decodeClockRequest(w http.ResponseWriter, r *http.Request) (attendance.ClockRequest, bool) {
	var req attendance.ClockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("Failed to decode clock request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return req, false
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return req, false
	}

	return req, true
}

// StreamToken implements AttendanceHandler.
func (h *attendanceHandlerImpl) StreamToken(w http.ResponseWriter, r *http.Request) {
	employeeID := getEmployeeIDFromContext(r)
	if employeeID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(employeeID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, attendance.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream pushes snapshot and clock events for the token's employee.
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot set headers, so the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	employeeID, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, unsubscribe := h.events.Subscribe(employeeID)
	defer func() {
		unsubscribe()
		if h.tracker != nil && h.events.SubscriberCount(employeeID) == 0 {
			h.tracker.Forget(employeeID)
		}
	}()

	if h.tracker != nil {
		h.tracker.Track(employeeID)
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"employee_id\":%q}\n\n", employeeID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Failed to encode stream event", "employee_id", employeeID, "event", event.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: %s\ndata: {\"timestamp\":%d}\n\n", sse.EventHeartbeat, time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
