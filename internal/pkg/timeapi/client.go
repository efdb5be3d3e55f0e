// Package timeapi is the client of the upstream attendance REST API.
package timeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/codeGROOVE-dev/retry"
	"github.com/maypok86/otter/v2"
	"golang.org/x/oauth2"
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("attendance api returned status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
	Retries  uint
	// RetryDelay is the base backoff delay. Zero means one second.
	RetryDelay time.Duration
	// Location is the employees' time zone. Nil means UTC.
	Location *time.Location
}

type Client struct {
	baseURL    string
	http       *http.Client
	cache      *otter.Cache[string, []byte]
	keysMu     sync.Mutex
	keys       map[string]map[string]struct{} // employee -> cached endpoints
	retries    uint
	retryDelay time.Duration
	loc        *time.Location
	logger     *slog.Logger
}

var _ attendance.Source = (*Client)(nil)

// New builds a client that authenticates with a static bearer token.
func New(ctx context.Context, cfg Config) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = cfg.Timeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       httpClient,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		loc:        cfg.Location,
		keys:       make(map[string]map[string]struct{}),
		logger:     slog.Default().With("component", "timeapi"),
	}
	if c.retries == 0 {
		c.retries = 1
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Second
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if cfg.CacheTTL > 0 {
		c.cache = otter.Must(&otter.Options[string, []byte]{
			MaximumSize:      10_000,
			InitialCapacity:  256,
			ExpiryCalculator: otter.ExpiryWriting[string, []byte](cfg.CacheTTL),
		})
	}
	return c
}

// ListDailyRecords implements attendance.Source.
func (c *Client) ListDailyRecords(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.DailyRecord, error) {
	q := url.Values{}
	q.Set("employee_id", employeeID)
	q.Set("start_date", from.Format("2006-01-02"))
	q.Set("end_date", to.Format("2006-01-02"))

	var out envelope[[]dailyRecordDTO]
	if err := c.getJSON(ctx, employeeID, "/api/v1/attendance/records?"+q.Encode(), &out); err != nil {
		return nil, mapNotFound(err, attendance.ErrEmployeeNotFound)
	}

	records := make([]attendance.DailyRecord, 0, len(out.Data))
	for _, d := range out.Data {
		records = append(records, d.toDomain(c.loc))
	}
	return records, nil
}

// GetTodaySchedule implements attendance.Source. A 404 or a null payload
// means no schedule is assigned.
func (c *Client) GetTodaySchedule(ctx context.Context, employeeID string, day time.Time) (*schedule.Schedule, error) {
	q := url.Values{}
	q.Set("employee_id", employeeID)
	q.Set("date", day.Format("2006-01-02"))

	var out envelope[*scheduleDTO]
	if err := c.getJSON(ctx, employeeID, "/api/v1/attendance/schedule/today?"+q.Encode(), &out); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if out.Data == nil {
		return nil, nil
	}
	return out.Data.toDomain(), nil
}

// GetActiveSession implements attendance.Source.
func (c *Client) GetActiveSession(ctx context.Context, employeeID string) (*attendance.ActiveSession, error) {
	q := url.Values{}
	q.Set("employee_id", employeeID)

	var out envelope[activeSessionPayload]
	if err := c.getJSON(ctx, employeeID, "/api/v1/attendance/session/active?"+q.Encode(), &out); err != nil {
		return nil, mapNotFound(err, attendance.ErrEmployeeNotFound)
	}
	if out.Data.ActiveSession == nil {
		return nil, nil
	}
	session, err := out.Data.ActiveSession.toDomain(c.loc)
	if err != nil {
		return nil, fmt.Errorf("decode active session start_time: %w", err)
	}
	return session, nil
}

// RecordEntry implements attendance.Source. It is never retried: the
// idempotency key lets the caller resubmit safely instead.
func (c *Client) RecordEntry(ctx context.Context, req attendance.EntryRequest) (attendance.RawEntry, error) {
	body, err := json.Marshal(entryRequestDTO{
		EmployeeID: req.EmployeeID,
		EntryType:  string(req.Type),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		OccurredAt: req.OccurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return attendance.RawEntry{}, fmt.Errorf("marshal entry request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/attendance/entries", bytes.NewReader(body))
	if err != nil {
		return attendance.RawEntry{}, fmt.Errorf("build entry request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return attendance.RawEntry{}, fmt.Errorf("entry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return attendance.RawEntry{}, readStatusError(resp)
	}

	var out envelope[timeEntryDTO]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return attendance.RawEntry{}, fmt.Errorf("decode entry response: %w", err)
	}

	c.invalidateEmployee(req.EmployeeID)
	return out.Data.toDomain(c.loc), nil
}

// getJSON fetches path with retries on transport errors, 429 and 5xx.
// Successful bodies are cached for the configured TTL.
func (c *Client) getJSON(ctx context.Context, employeeID, path string, out any) error {
	endpoint := c.baseURL + path

	if c.cache != nil {
		if body, ok := c.cache.GetIfPresent(endpoint); ok {
			c.logger.Debug("cache hit", "url", endpoint)
			return decode(body, out)
		}
	}

	start := time.Now()
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("build request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return readStatusError(resp)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(readStatusError(resp))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read response body: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("retrying attendance api request", "url", endpoint, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.logger.Warn("attendance api request failed", "url", endpoint, "error", err, "duration", time.Since(start))
		return err
	}

	if err := decode(body, out); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Set(endpoint, body)
		c.keysMu.Lock()
		if c.keys[employeeID] == nil {
			c.keys[employeeID] = make(map[string]struct{})
		}
		c.keys[employeeID][endpoint] = struct{}{}
		c.keysMu.Unlock()
	}
	return nil
}

// invalidateEmployee drops every cached response of one employee.
func (c *Client) invalidateEmployee(employeeID string) {
	if c.cache == nil {
		return
	}
	c.keysMu.Lock()
	endpoints := c.keys[employeeID]
	delete(c.keys, employeeID)
	c.keysMu.Unlock()

	for endpoint := range endpoints {
		c.cache.Invalidate(endpoint)
	}
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}

func mapNotFound(err error, target error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}
