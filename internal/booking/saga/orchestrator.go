// Package saga orchestrates the create-reservation flow across the
// Booking and Hotel services: hold, confirm, and compensating release on
// failure.
package saga

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/gateway"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/store"
)

// HotelGateway is the subset of gateway.Client the orchestrator needs,
// narrowed to an interface so tests can substitute a stub.
type HotelGateway interface {
	Hold(ctx context.Context, req gateway.HoldRequest, correlationID string) (gateway.LockResponse, error)
	Confirm(ctx context.Context, roomID, requestID, correlationID string) (gateway.LockResponse, error)
	Release(ctx context.Context, roomID, requestID, correlationID string) (gateway.LockResponse, error)
}

// Clock is the injectable time source, so tests can control timestamps.
type Clock func() time.Time

// Metrics instruments saga outcomes for Prometheus.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics registers the saga's Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "orchestrator",
			Name:      "outcomes_total",
			Help:      "Total CreateReservation saga outcomes.",
		}, []string{"outcome"}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reservation_saga",
			Subsystem: "orchestrator",
			Name:      "duration_seconds",
			Help:      "Duration of the CreateReservation saga end to end.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

// Orchestrator drives the CreateReservation saga.
type Orchestrator struct {
	reservations store.ReservationStore
	hotel        HotelGateway
	logger       *slog.Logger
	metrics      *Metrics
	now          Clock
}

// New builds an Orchestrator.
func New(reservations store.ReservationStore, hotel HotelGateway, logger *slog.Logger, metrics *Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reservations: reservations,
		hotel:        hotel,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
	}
}

// WithClock overrides the time source; intended for tests.
func (o *Orchestrator) WithClock(clock Clock) *Orchestrator {
	o.now = clock
	return o
}

// CreateReservation runs the full saga: idempotency probe, PENDING
// reservation, hold on Hotel, confirm on Hotel, and, on any failure after
// a successful hold, a best-effort compensating release. The returned
// Reservation always reflects a terminal status on success.
func (o *Orchestrator) CreateReservation(ctx context.Context, in domain.NewReservationInput, correlationID string) (domain.Reservation, error) {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.Duration.Observe(time.Since(start).Seconds())
		}
	}()

	now := o.now()
	if err := in.Validate(now); err != nil {
		o.metrics.record("validation_error")
		return domain.Reservation{}, err
	}
	if in.RequestID == "" {
		in.RequestID = uuid.NewString()
	}

	if existing, err := o.reservations.GetByRequestID(ctx, in.RequestID); err == nil {
		o.metrics.record("idempotent_replay")
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Reservation{}, err
	}

	reservation := domain.NewPending(uuid.NewString(), in, correlationID, now)
	if err := o.reservations.Insert(ctx, reservation); err != nil {
		if errors.Is(err, store.ErrDuplicateRequestID) {
			existing, getErr := o.reservations.GetByRequestID(ctx, in.RequestID)
			if getErr != nil {
				return domain.Reservation{}, getErr
			}
			o.metrics.record("idempotent_replay")
			return existing, nil
		}
		o.metrics.record("persist_error")
		return domain.Reservation{}, err
	}

	_, err := o.hotel.Hold(ctx, gateway.HoldRequest{
		RequestID: in.RequestID,
		RoomID:    in.RoomID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}, correlationID)
	if err != nil {
		return o.cancel(ctx, reservation, "hold_failed", err)
	}

	if _, err := o.hotel.Confirm(ctx, in.RoomID, in.RequestID, correlationID); err != nil {
		o.releaseCompensate(reservation, correlationID)
		return o.cancel(ctx, reservation, "confirm_failed", err)
	}

	confirmed, err := reservation.Confirm()
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := o.reservations.Update(ctx, confirmed); err != nil {
		o.metrics.record("persist_error")
		return domain.Reservation{}, err
	}

	o.metrics.record("confirmed")
	return confirmed, nil
}

// releaseCompensate fires the compensating release without the inbound
// request's context, so a cancelled HTTP request never leaves a room
// locked that the saga meant to free.
func (o *Orchestrator) releaseCompensate(reservation domain.Reservation, correlationID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(context.Background()), 10*time.Second)
	defer cancel()

	if _, err := o.hotel.Release(ctx, reservation.RoomID, reservation.RequestID, correlationID); err != nil {
		o.logger.Error("compensating release failed",
			"request_id", reservation.RequestID, "room_id", reservation.RoomID, "error", err)
	}
}

func (o *Orchestrator) cancel(ctx context.Context, reservation domain.Reservation, outcome string, cause error) (domain.Reservation, error) {
	cancelled, err := reservation.Cancel()
	if err != nil {
		return domain.Reservation{}, err
	}
	if err := o.reservations.Update(ctx, cancelled); err != nil {
		o.logger.Error("failed to persist cancellation", "request_id", reservation.RequestID, "error", err)
	}
	o.metrics.record(outcome)
	return cancelled, cause
}
