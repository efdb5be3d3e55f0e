package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

// Client talks to the attendance portal API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// APIError is a non-success envelope returned by the portal.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if earliest, ok := e.Details["earliest_allowed"]; ok {
		msg += fmt.Sprintf(" (earliest allowed %s)", earliest)
	}
	return msg
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Dashboard(ctx context.Context) (attendance.DashboardResponse, error) {
	var out attendance.DashboardResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/attendance/dashboard", nil, &out)
	return out, err
}

func (c *Client) TeamDashboard(ctx context.Context, employeeID string) (attendance.DashboardResponse, error) {
	var out attendance.DashboardResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/team/"+url.PathEscape(employeeID)+"/dashboard", nil, &out)
	return out, err
}

func (c *Client) Records(ctx context.Context, startDate, endDate string) (attendance.ListRecordsResponse, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	if endDate != "" {
		q.Set("end_date", endDate)
	}
	path := "/api/v1/attendance/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out attendance.ListRecordsResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Gate(ctx context.Context, action schedule.GateAction) (attendance.GateResponse, error) {
	var out attendance.GateResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/attendance/gate?action="+url.QueryEscape(string(action)), nil, &out)
	return out, err
}

func (c *Client) Clock(ctx context.Context, action schedule.GateAction, req attendance.ClockRequest) (attendance.ClockResponse, error) {
	path := "/api/v1/attendance/clock-in"
	if action == schedule.GateActionOut {
		path = "/api/v1/attendance/clock-out"
	}

	var out attendance.ClockResponse
	err := c.do(ctx, http.MethodPost, path, req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(data))}
	}

	if !env.Success || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
