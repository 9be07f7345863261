package middleware

// Context keys for middleware data storage
type contextKey string

const (
	// RequestIDContextKey is the context key for the per-call request id
	RequestIDContextKey contextKey = "request_id"

	// CorrelationIDContextKey is the context key for the saga correlation id
	CorrelationIDContextKey contextKey = "correlation_id"

	// StartTimeContextKey is the context key for request start time
	StartTimeContextKey contextKey = "start_time"
)

// HTTP headers
const (
	// RequestIDHeader is the header name for request ID
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDHeader is the header name for saga correlation ID,
	// propagated from Booking to Hotel on every gateway call.
	CorrelationIDHeader = "X-Correlation-Id"

	// IdempotencyKeyHeader names the same header as RequestIDHeader. No
	// handler reads it: the booking and hotel endpoints take the
	// idempotency request_id from the JSON body.
	IdempotencyKeyHeader = "X-Request-Id"
)
