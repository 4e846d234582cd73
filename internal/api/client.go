package api

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

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
)

const defaultClientTimeout = 10 * time.Second

// Client is an aggregator backed by a remote codetype API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ aggregator.Aggregator = (*Client)(nil)

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A nil client is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultClientTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type envelope[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *apiError `json:"error"`
}

// SubmitTestResult posts one result.
func (c *Client) SubmitTestResult(ctx context.Context, sub aggregator.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = call[map[string]string](ctx, c, http.MethodPost, "/api/v1/results", bytes.NewReader(body))
	return err
}

// ListTestResults fetches every stored result.
func (c *Client) ListTestResults(ctx context.Context) ([]model.SessionRecord, error) {
	return records(call[[]model.SessionRecord](ctx, c, http.MethodGet, "/api/v1/results", nil))
}

// GetTestResult fetches the result at a zero-based index.
func (c *Client) GetTestResult(ctx context.Context, index int) (model.SessionRecord, error) {
	return call[model.SessionRecord](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/results/%d", index), nil)
}

// ListTestResultRange fetches results with index in [start, end).
func (c *Client) ListTestResultRange(ctx context.Context, start, end int) ([]model.SessionRecord, error) {
	q := url.Values{}
	q.Set("start", fmt.Sprint(start))
	q.Set("end", fmt.Sprint(end))
	return records(call[[]model.SessionRecord](ctx, c, http.MethodGet, "/api/v1/results/range?"+q.Encode(), nil))
}

// BestWPM fetches the highest WPM.
func (c *Client) BestWPM(ctx context.Context) (model.Option[int], error) {
	return call[model.Option[int]](ctx, c, http.MethodGet, "/api/v1/stats/best-wpm", nil)
}

// AverageWPM fetches the mean WPM.
func (c *Client) AverageWPM(ctx context.Context) (model.Option[float64], error) {
	return call[model.Option[float64]](ctx, c, http.MethodGet, "/api/v1/stats/average-wpm", nil)
}

// AverageAccuracy fetches the mean accuracy.
func (c *Client) AverageAccuracy(ctx context.Context) (model.Option[float64], error) {
	return call[model.Option[float64]](ctx, c, http.MethodGet, "/api/v1/stats/average-accuracy", nil)
}

// TotalTests fetches the result count.
func (c *Client) TotalTests(ctx context.Context) (int, error) {
	return call[int](ctx, c, http.MethodGet, "/api/v1/stats/total", nil)
}

// TodaysResults fetches results stamped today.
func (c *Client) TodaysResults(ctx context.Context) ([]model.SessionRecord, error) {
	return records(call[[]model.SessionRecord](ctx, c, http.MethodGet, "/api/v1/results/today", nil))
}

// DailyStreak fetches the current streak length.
func (c *Client) DailyStreak(ctx context.Context) (int, error) {
	return call[int](ctx, c, http.MethodGet, "/api/v1/stats/streak", nil)
}

// StreakCalendar fetches active days.
func (c *Client) StreakCalendar(ctx context.Context) ([]model.StreakDay, error) {
	days, err := call[[]model.StreakDay](ctx, c, http.MethodGet, "/api/v1/stats/calendar", nil)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []model.StreakDay{}
	}
	return days, nil
}

func records(list []model.SessionRecord, err error) ([]model.SessionRecord, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.SessionRecord{}
	}
	return list, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body io.Reader) (T, error) {
	var zero T
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(resp, &result); err != nil {
		return zero, fmt.Errorf("%w: failed to unmarshal response: %w", aggregator.ErrUnavailable, err)
	}
	if !result.Success {
		return zero, apiErrorToErr(0, result.Error)
	}
	return result.Data, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", aggregator.ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", aggregator.ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		var result envelope[json.RawMessage]
		if jerr := json.Unmarshal(respBody, &result); jerr != nil || result.Error == nil {
			return nil, apiErrorToErr(resp.StatusCode, &apiError{Message: strings.TrimSpace(string(respBody))})
		}
		return nil, apiErrorToErr(resp.StatusCode, result.Error)
	}

	return respBody, nil
}

// apiErrorToErr restores aggregator sentinels from an error envelope.
func apiErrorToErr(status int, e *apiError) error {
	if e == nil {
		e = &apiError{Code: codeInternal, Message: "unknown error"}
	}
	switch {
	case e.Code == codeNotFound || status == http.StatusNotFound:
		return wrapSentinel(aggregator.ErrNotFound, e.Message)
	case e.Code == codeInvalidRange:
		return wrapSentinel(aggregator.ErrInvalidRange, e.Message)
	case e.Code == codeInvalid:
		return wrapSentinel(aggregator.ErrInvalidSubmission, e.Message)
	case status >= 500 || status == 0 || e.Code == codeUnavailable:
		return fmt.Errorf("%w: HTTP %d: %s", aggregator.ErrUnavailable, status, e.Message)
	default:
		return fmt.Errorf("HTTP %d: %s - %s", status, e.Code, e.Message)
	}
}

func wrapSentinel(sentinel error, msg string) error {
	msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	return fmt.Errorf("%w: %s", sentinel, msg)
}
