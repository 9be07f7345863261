// Package engine implements the Hotel lock engine: hold, confirm and
// release over RoomLock, enforcing the non-overlap invariant per room.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/roomlock"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
)

// Clock is the injectable time source, so tests can control expiry checks.
type Clock func() time.Time

// Metrics instruments lock transitions for Prometheus.
type Metrics struct {
	Transitions *prometheus.CounterVec
}

// NewMetrics registers the lock engine's counters.
func NewMetrics() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "lock_engine",
			Name:      "transitions_total",
			Help:      "Total RoomLock state transitions by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) record(operation, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, outcome).Inc()
}

// Engine is the Hotel lock engine.
type Engine struct {
	locks   store.LockStore
	rooms   store.RoomStore
	locker  roomlock.Locker
	logger  *slog.Logger
	metrics *Metrics
	now     Clock
	holdTTL time.Duration
}

// New builds a lock Engine.
func New(locks store.LockStore, rooms store.RoomStore, locker roomlock.Locker, logger *slog.Logger, metrics *Metrics, holdTTL time.Duration) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &Engine{
		locks:   locks,
		rooms:   rooms,
		locker:  locker,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		holdTTL: holdTTL,
	}
}

// WithClock overrides the time source; intended for tests.
func (e *Engine) WithClock(clock Clock) *Engine {
	e.now = clock
	return e
}

// Hold validates, idempotently replays or creates a HELD lock on a room,
// serializing against other holds on the same room.
func (e *Engine) Hold(ctx context.Context, in domain.NewHoldInput, correlationID string) (domain.RoomLock, error) {
	now := e.now()

	if err := in.Validate(now); err != nil {
		e.metrics.record("hold", "validation_error")
		return domain.RoomLock{}, err
	}

	if existing, err := e.locks.GetByRequestID(ctx, in.RequestID); err == nil {
		e.metrics.record("hold", "idempotent_replay")
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.RoomLock{}, err
	}

	room, err := e.rooms.Get(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.record("hold", "room_not_found")
			return domain.RoomLock{}, domain.ErrRoomNotFound
		}
		return domain.RoomLock{}, err
	}
	if !room.Available {
		e.metrics.record("hold", "room_unavailable")
		return domain.RoomLock{}, domain.ErrRoomUnavailable
	}

	var result domain.RoomLock
	err = e.locker.WithRoomLock(ctx, in.RoomID, func(ctx context.Context) error {
		if _, found, err := e.locks.FindActiveOverlapping(ctx, in.RoomID, in.StartDate, in.EndDate); err != nil {
			return err
		} else if found {
			return domain.ErrConflict
		}

		lock := domain.NewHeld(uuid.NewString(), in, correlationID, now, e.holdTTL)
		if err := e.locks.Insert(ctx, lock); err != nil {
			if errors.Is(err, store.ErrDuplicateRequestID) {
				existing, getErr := e.locks.GetByRequestID(ctx, in.RequestID)
				if getErr != nil {
					return getErr
				}
				result = existing
				return nil
			}
			return err
		}
		result = lock
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			e.metrics.record("hold", "conflict")
		} else {
			e.metrics.record("hold", "error")
		}
		return domain.RoomLock{}, err
	}

	e.metrics.record("hold", "success")
	return result, nil
}

// Confirm transitions a HELD lock to CONFIRMED and bumps the room's
// times_booked counter exactly once, regardless of retries.
func (e *Engine) Confirm(ctx context.Context, requestID string) (domain.RoomLock, error) {
	now := e.now()

	lock, err := e.locks.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.record("confirm", "not_found")
			return domain.RoomLock{}, domain.ErrLockNotFound
		}
		return domain.RoomLock{}, err
	}

	wasHeld := lock.Status == domain.StatusHeld
	transitioned, err := lock.Confirm(now)
	if err != nil {
		e.metrics.record("confirm", "rejected")
		return domain.RoomLock{}, err
	}

	if wasHeld {
		if err := e.locks.Update(ctx, transitioned); err != nil {
			e.metrics.record("confirm", "error")
			return domain.RoomLock{}, err
		}
		if err := e.rooms.IncrementTimesBooked(ctx, transitioned.RoomID); err != nil {
			e.logger.Error("failed to increment times_booked", "room_id", transitioned.RoomID, "error", err)
		}
	}

	e.metrics.record("confirm", "success")
	return transitioned, nil
}

// Release transitions a HELD lock to RELEASED, freeing the room interval.
// Releasing a RELEASED or CONFIRMED lock is a no-op that returns its current
// state; releasing an EXPIRED lock fails with domain.ErrAlreadyExpired.
func (e *Engine) Release(ctx context.Context, requestID string) (domain.RoomLock, error) {
	now := e.now()

	lock, err := e.locks.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.record("release", "not_found")
			return domain.RoomLock{}, domain.ErrLockNotFound
		}
		return domain.RoomLock{}, err
	}

	wasHeld := lock.Status == domain.StatusHeld
	transitioned, err := lock.Release(now)
	if err != nil {
		e.metrics.record("release", "rejected")
		return domain.RoomLock{}, err
	}

	if wasHeld {
		if err := e.locks.Update(ctx, transitioned); err != nil {
			e.metrics.record("release", "error")
			return domain.RoomLock{}, err
		}
	}

	e.metrics.record("release", "success")
	return transitioned, nil
}
