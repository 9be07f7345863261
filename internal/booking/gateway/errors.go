package gateway

import "errors"

// ErrConflict signals that the Hotel service rejected a hold because the
// requested interval overlaps an existing lock or the room is unavailable.
// It is never retried: a conflict will not resolve itself on a retry.
var ErrConflict = errors.New("gateway: hotel rejected request with a conflict")

// ErrNotFound signals the Hotel service has no record for the given
// request_id (confirm/release racing ahead of a successful hold, or a
// stale retry after the room was deleted).
var ErrNotFound = errors.New("gateway: hotel has no matching record")

// ErrUnavailable signals the Hotel service could not be reached or
// returned a retryable failure even after the retry policy was exhausted.
var ErrUnavailable = errors.New("gateway: hotel service unavailable")
