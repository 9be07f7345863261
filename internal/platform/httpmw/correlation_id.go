package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CorrelationIDMiddleware extracts the saga correlation id from headers and
// adds it to the request context, generating one if the caller omitted it.
// Unlike the request id (per-call, idempotency-bearing), the correlation id
// is propagated unchanged across a whole saga's hold/confirm/release chain.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), CorrelationIDContextKey, correlationID)
		r = r.WithContext(ctx)

		w.Header().Set(CorrelationIDHeader, correlationID)
		next.ServeHTTP(w, r)
	})
}

// GetCorrelationID extracts the saga correlation id from context.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDContextKey).(string); ok {
		return id
	}
	return ""
}
