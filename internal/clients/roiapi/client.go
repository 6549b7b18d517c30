// Package roiapi provides a client for the ROI backend service.
package roiapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/aristath/roi-tracker/internal/domain"
)

const maxErrorBody = 512

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Transient reports whether retrying the same request may succeed
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// DecodeError is returned when a 2xx body cannot be parsed
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransient classifies err: network failures, timeouts, 5xx/429/408 and
// malformed bodies are transient; other status errors and cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Transport failures from net/http surface as *url.Error, which is a net.Error
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Client talks to the ROI backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a backend client. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "roi-api").Logger(),
	}
}

// BaseURL returns the backend address the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetROI fetches the full snapshot: all period records, alerts and the current period
func (c *Client) GetROI(ctx context.Context) (*domain.ROIResponse, error) {
	var resp domain.ROIResponse
	if err := c.do(ctx, http.MethodGet, "/roi", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []domain.ROIRecord{}
	}
	if resp.Alerts == nil {
		resp.Alerts = []domain.Alert{}
	}
	return &resp, nil
}

// NextPeriod asks the backend to advance and returns its reported current period
func (c *Client) NextPeriod(ctx context.Context) (int, error) {
	var resp domain.PeriodResponse
	if err := c.do(ctx, http.MethodPost, "/next-period", nil, &resp); err != nil {
		return 0, err
	}
	c.log.Debug().Int("current_period", resp.CurrentPeriod).Str("message", resp.Message).Msg("Advance acknowledged")
	return resp.CurrentPeriod, nil
}

// ResetPeriods tells the backend to reset its period counter
func (c *Client) ResetPeriods(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset-periods", nil, nil)
}

// Health checks the backend health endpoint
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "healthy" {
		return fmt.Errorf("backend reports status %q", resp.Status)
	}
	return nil
}

// AddPeriod submits one period of raw transaction data
func (c *Client) AddPeriod(ctx context.Context, period domain.PeriodInput) error {
	return c.do(ctx, http.MethodPost, "/period", period, nil)
}

// DeleteAllPeriods removes every stored period from the backend
func (c *Client) DeleteAllPeriods(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/periods", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration_ms", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}
