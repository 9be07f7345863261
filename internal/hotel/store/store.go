// Package store defines the persistence contracts for RoomLock and Room,
// and a Postgres-backed implementation of each.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
)

// ErrNotFound is returned when a lookup by id or request_id finds no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateRequestID is returned by Insert when request_id already
// exists; the caller should re-read via GetByRequestID instead of treating
// this as a hard failure.
var ErrDuplicateRequestID = errors.New("store: request_id already exists")

// LockStore persists RoomLock rows keyed by request_id, with the
// secondary index the conflict probe needs: (room_id, status, start_date,
// end_date).
type LockStore interface {
	// GetByRequestID implements the idempotency probe: hold/confirm/release
	// all begin by looking up the existing row for this request_id.
	GetByRequestID(ctx context.Context, requestID string) (domain.RoomLock, error)

	// Insert creates a new lock row. Must fail with ErrDuplicateRequestID
	// if request_id already exists.
	Insert(ctx context.Context, lock domain.RoomLock) error

	// Update writes back a transitioned lock, keyed by its id.
	Update(ctx context.Context, lock domain.RoomLock) error

	// FindActiveOverlapping returns any lock on roomID with status in
	// {HELD, CONFIRMED} whose interval overlaps [start, end). Used by the
	// hold conflict check; the caller must hold the per-room mutex while
	// calling this and Insert together.
	FindActiveOverlapping(ctx context.Context, roomID string, start, end time.Time) (domain.RoomLock, bool, error)

	// FindExpiredHeld returns HELD locks whose expires_at is before now,
	// for the sweeper.
	FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]domain.RoomLock, error)
}

// RoomStore persists the minimal Room aggregate.
type RoomStore interface {
	Get(ctx context.Context, roomID string) (domain.Room, error)
	IncrementTimesBooked(ctx context.Context, roomID string) error
}
