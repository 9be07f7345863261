package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
)

// StoreMetrics instruments query latency and outcomes for the Booking store.
type StoreMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewStoreMetrics registers the Booking store metrics against the default
// Prometheus registry.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reservation_saga",
			Subsystem: "booking_store",
			Name:      "query_duration_seconds",
			Help:      "Duration of Booking store queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "booking_store",
			Name:      "query_errors_total",
			Help:      "Total Booking store query errors.",
		}, []string{"operation"}),
	}
}

func (m *StoreMetrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		m.QueryErrors.WithLabelValues(operation).Inc()
	}
}

// PostgresReservationStore implements ReservationStore against a pgxpool.Pool.
type PostgresReservationStore struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *StoreMetrics
}

// NewPostgresReservationStore builds a PostgresReservationStore.
func NewPostgresReservationStore(pool *pgxpool.Pool, logger *slog.Logger, metrics *StoreMetrics) *PostgresReservationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReservationStore{pool: pool, logger: logger, metrics: metrics}
}

func (s *PostgresReservationStore) GetByRequestID(ctx context.Context, requestID string) (domain.Reservation, error) {
	const op = "get_by_request_id"
	start := time.Now()

	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, user_id, room_id, start_date, end_date, status,
		       correlation_id, created_at
		FROM reservations WHERE request_id = $1`, requestID)

	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
	}
	s.metrics.observe(op, start, err)
	return r, err
}

func (s *PostgresReservationStore) Insert(ctx context.Context, r domain.Reservation) error {
	const op = "insert"
	start := time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reservations (id, request_id, user_id, room_id, start_date, end_date,
		                          status, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.RequestID, r.UserID, r.RoomID, r.StartDate, r.EndDate,
		r.Status, r.CorrelationID, r.CreatedAt)

	if isUniqueViolation(err) {
		s.metrics.observe(op, start, ErrDuplicateRequestID)
		return ErrDuplicateRequestID
	}
	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("failed to insert reservation", "request_id", r.RequestID, "user_id", r.UserID, "error", err)
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresReservationStore) Update(ctx context.Context, r domain.Reservation) error {
	const op = "update"
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations SET status = $1 WHERE id = $2`, r.Status, r.ID)

	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("failed to update reservation", "id", r.ID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(r rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	err := r.Scan(&res.ID, &res.RequestID, &res.UserID, &res.RoomID, &res.StartDate, &res.EndDate,
		&status, &res.CorrelationID, &res.CreatedAt)
	res.Status = domain.Status(status)
	return res, err
}
