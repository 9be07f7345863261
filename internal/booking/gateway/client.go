// Package gateway implements the Booking service's HTTP client to the
// Hotel service: hold, confirm and release, wrapped in a retry policy
// tuned to the saga's definitive-conflict-vs-transient-failure distinction.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/reservation-saga/internal/platform/resilience"
)

// HoldRequest is the body sent to POST /rooms/{room_id}/hold.
type HoldRequest struct {
	RequestID string
	RoomID    string
	StartDate time.Time
	EndDate   time.Time
}

// LockResponse mirrors the Hotel service's lock representation.
type LockResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	RoomID    string `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

type holdWireRequest struct {
	RequestID string `json:"request_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type requestIDWireRequest struct {
	RequestID string `json:"request_id"`
}

// httpStatusError carries the HTTP status code through the retry policy so
// the error checker can classify retryable vs definitive failures without
// string-matching response bodies.
type httpStatusError struct {
	statusCode int
	body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("hotel service responded %d: %s", e.statusCode, e.body)
}

// statusErrorChecker classifies retryable failures by HTTP status code:
// transport errors, 5xx, 408, and 429 are retried; everything else
// (including the saga-meaningful 404 and 409) is treated as definitive.
type statusErrorChecker struct{}

func (statusErrorChecker) IsRetryable(err error) bool {
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return false
	}
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return true // transport-level error: dial failure, timeout, etc.
	}
	switch statusErr.statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return statusErr.statusCode >= 500
	}
}

// Client calls the Hotel service's hold/confirm/release endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     *resilience.RetryPolicy
	logger     *slog.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	RetryPolicy     *resilience.RetryPolicy
}

// New builds a Hotel gateway Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	policy := cfg.RetryPolicy
	if policy == nil {
		policy = resilience.DefaultRetryPolicy()
	}
	policy.ErrorChecker = statusErrorChecker{}

	limit := cfg.RateLimitPerSec
	if limit <= 0 {
		limit = 50
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = int(limit)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		policy:     policy,
		logger:     logger,
	}
}

// Hold calls POST /rooms/{room_id}/hold. A 409 response surfaces as
// ErrConflict and is not retried: the saga must compensate, not retry.
func (c *Client) Hold(ctx context.Context, req HoldRequest, correlationID string) (LockResponse, error) {
	body := holdWireRequest{
		RequestID: req.RequestID,
		StartDate: req.StartDate.Format(time.RFC3339),
		EndDate:   req.EndDate.Format(time.RFC3339),
	}
	resp, err := resilience.WithRetryFunc(ctx, c.policy, func() (LockResponse, error) {
		return c.do(ctx, http.MethodPost, "/rooms/"+req.RoomID+"/hold", body, correlationID)
	})
	return resp, classifyError(err)
}

// Confirm calls POST /rooms/{room_id}/confirm.
func (c *Client) Confirm(ctx context.Context, roomID, requestID, correlationID string) (LockResponse, error) {
	body := requestIDWireRequest{RequestID: requestID}
	resp, err := resilience.WithRetryFunc(ctx, c.policy, func() (LockResponse, error) {
		return c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/confirm", body, correlationID)
	})
	return resp, classifyError(err)
}

// Release calls POST /rooms/{room_id}/release. Used for saga compensation;
// callers should call this with context.WithoutCancel so a cancelled
// inbound request does not abort the compensating release.
func (c *Client) Release(ctx context.Context, roomID, requestID, correlationID string) (LockResponse, error) {
	body := requestIDWireRequest{RequestID: requestID}
	resp, err := resilience.WithRetryFunc(ctx, c.policy, func() (LockResponse, error) {
		return c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/release", body, correlationID)
	})
	return resp, classifyError(err)
}

// classifyError maps everything that isn't a definitive ErrConflict/ErrNotFound
// to ErrUnavailable, so a transport failure or an exhausted retry budget
// surfaces as a 503 rather than an opaque saga error.
func classifyError(err error) error {
	if err == nil || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, correlationID string) (LockResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return LockResponse{}, err
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return LockResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return LockResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if correlationID != "" {
		httpReq.Header.Set("X-Correlation-ID", correlationID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return LockResponse{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var out LockResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return LockResponse{}, err
		}
		return out, nil
	case http.StatusNotFound:
		return LockResponse{}, ErrNotFound
	case http.StatusConflict:
		return LockResponse{}, ErrConflict
	default:
		return LockResponse{}, &httpStatusError{statusCode: resp.StatusCode, body: string(respBody)}
	}
}
