// Package httperr provides a uniform JSON error envelope for both the
// booking and hotel HTTP surfaces.
package httperr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeUpstreamTimeout   Code = "UPSTREAM_TIMEOUT"
	CodeUpstreamUnavail   Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error is the JSON body returned for any non-2xx response.
type Error struct {
	Code          Code   `json:"code"`
	Message       string `json:"message"`
	RequestID     string `json:"request_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Timestamp     string `json:"timestamp"`
}

type envelope struct {
	Error Error `json:"error"`
}

// New builds an Error with the current timestamp.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithRequestID attaches the request id that produced the error.
func (e *Error) WithRequestID(id string) *Error {
	e.RequestID = id
	return e
}

// WithCorrelationID attaches the saga correlation id that produced the error.
func (e *Error) WithCorrelationID(id string) *Error {
	e.CorrelationID = id
	return e
}

// StatusCode maps an error code onto an HTTP status per the error handling
// design: validation -> 400, not-found -> 404, conflict/invalid-state ->
// 409, upstream failures -> 502/504, everything else -> 500.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstreamUnavail:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write serializes the error as the response body with the matching status.
func Write(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(envelope{Error: *err})
}

func Validation(message string) *Error      { return New(CodeValidation, message) }
func NotFound(resource string) *Error       { return New(CodeNotFound, resource+" not found") }
func Conflict(message string) *Error        { return New(CodeConflict, message) }
func InvalidState(message string) *Error    { return New(CodeInvalidState, message) }
func Internal(message string) *Error        { return New(CodeInternal, message) }
func UpstreamTimeout(message string) *Error { return New(CodeUpstreamTimeout, message) }
func UpstreamUnavailable(message string) *Error {
	return New(CodeUpstreamUnavail, message)
}
