// Package domain holds the Reservation aggregate and its state machine.
package domain

import (
	"errors"
	"time"
)

// Status is the tagged variant for a Reservation's lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrInvalidRoomID    = errors.New("room_id is required")
	ErrInvalidUserID    = errors.New("user_id is required")
	ErrInvalidInterval  = errors.New("start_date must be before end_date")
	ErrStartInPast      = errors.New("start_date must not be before today")
	ErrAlreadyTerminal  = errors.New("reservation is already in a terminal state")
)

// Reservation is the Booking-side record of one saga's outcome.
type Reservation struct {
	ID            string
	RequestID     string
	UserID        string
	RoomID        string
	StartDate     time.Time
	EndDate       time.Time
	Status        Status
	CorrelationID string
	CreatedAt     time.Time
}

// NewReservationInput is the fully-validated set of fields needed to start
// a saga. Construction is a single function, not a builder accepting
// half-populated state.
type NewReservationInput struct {
	RequestID string
	UserID    string
	RoomID    string
	StartDate time.Time
	EndDate   time.Time
}

// Validate checks the invariants a saga must satisfy before it may begin:
// non-empty identities, a well-formed half-open interval, and a start date
// no earlier than today.
func (in NewReservationInput) Validate(now time.Time) error {
	if in.UserID == "" {
		return ErrInvalidUserID
	}
	if in.RoomID == "" {
		return ErrInvalidRoomID
	}
	if !in.StartDate.Before(in.EndDate) {
		return ErrInvalidInterval
	}
	if in.StartDate.Before(startOfDay(now)) {
		return ErrStartInPast
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewPending builds a fresh Reservation in PENDING status. This is the
// saga's commit-point marker: once persisted, the caller must drive it to
// a terminal status.
func NewPending(id string, in NewReservationInput, correlationID string, createdAt time.Time) Reservation {
	return Reservation{
		ID:            id,
		RequestID:     in.RequestID,
		UserID:        in.UserID,
		RoomID:        in.RoomID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        StatusPending,
		CorrelationID: correlationID,
		CreatedAt:     createdAt,
	}
}

// Confirm transitions a PENDING reservation to CONFIRMED. It is a pure
// function: it returns the new value rather than mutating in place, and
// refuses to move a reservation that is already terminal.
func (r Reservation) Confirm() (Reservation, error) {
	if r.Status != StatusPending {
		return r, ErrAlreadyTerminal
	}
	r.Status = StatusConfirmed
	return r, nil
}

// Cancel transitions a PENDING reservation to CANCELLED.
func (r Reservation) Cancel() (Reservation, error) {
	if r.Status != StatusPending {
		return r, ErrAlreadyTerminal
	}
	r.Status = StatusCancelled
	return r, nil
}

// IsTerminal reports whether no further transition is possible.
func (r Reservation) IsTerminal() bool {
	return r.Status == StatusConfirmed || r.Status == StatusCancelled
}
