package middleware

import (
	"log/slog"
	"net/http"

	"github.com/vitaliisemenov/reservation-saga/internal/platform/httperr"
)

// RecoveryMiddleware converts a panic in a downstream handler into a 500
// response instead of tearing down the whole server goroutine.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"request_id", GetRequestID(r.Context()),
						"path", r.URL.Path,
						"panic", rec)
					httperr.Write(w, httperr.Internal("internal server error").WithRequestID(GetRequestID(r.Context())))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
