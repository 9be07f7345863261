// Package store defines the persistence contract for Reservation, and a
// Postgres-backed implementation of it.
package store

import (
	"context"
	"errors"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
)

// ErrNotFound is returned when a lookup by id or request_id finds no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateRequestID is returned by Insert when request_id already
// exists; the caller should re-read via GetByRequestID instead of treating
// this as a hard failure.
var ErrDuplicateRequestID = errors.New("store: request_id already exists")

// ReservationStore persists Reservation rows keyed by request_id.
type ReservationStore interface {
	// GetByRequestID implements the idempotency probe: the saga begins by
	// looking up the existing row for this request_id before doing anything.
	GetByRequestID(ctx context.Context, requestID string) (domain.Reservation, error)

	// Insert creates a new reservation row in PENDING status. Must fail
	// with ErrDuplicateRequestID if request_id already exists.
	Insert(ctx context.Context, r domain.Reservation) error

	// Update writes back a transitioned reservation, keyed by its id.
	Update(ctx context.Context, r domain.Reservation) error
}
