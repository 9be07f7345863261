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

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
)

// StoreMetrics instruments query latency and outcomes for the Hotel stores.
type StoreMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewStoreMetrics registers the Hotel store metrics against the default
// Prometheus registry.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reservation_saga",
			Subsystem: "hotel_store",
			Name:      "query_duration_seconds",
			Help:      "Duration of Hotel store queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservation_saga",
			Subsystem: "hotel_store",
			Name:      "query_errors_total",
			Help:      "Total Hotel store query errors.",
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

// PostgresLockStore implements LockStore against a pgxpool.Pool.
type PostgresLockStore struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *StoreMetrics
}

// NewPostgresLockStore builds a PostgresLockStore.
func NewPostgresLockStore(pool *pgxpool.Pool, logger *slog.Logger, metrics *StoreMetrics) *PostgresLockStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLockStore{pool: pool, logger: logger, metrics: metrics}
}

func (s *PostgresLockStore) GetByRequestID(ctx context.Context, requestID string) (domain.RoomLock, error) {
	const op = "get_by_request_id"
	start := time.Now()

	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, room_id, start_date, end_date, status,
		       created_at, updated_at, expires_at, correlation_id
		FROM locks WHERE request_id = $1`, requestID)

	lock, err := scanLock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
	}
	s.metrics.observe(op, start, err)
	return lock, err
}

func (s *PostgresLockStore) Insert(ctx context.Context, lock domain.RoomLock) error {
	const op = "insert"
	start := time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO locks (id, request_id, room_id, start_date, end_date, status,
		                    created_at, updated_at, expires_at, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lock.ID, lock.RequestID, lock.RoomID, lock.StartDate, lock.EndDate, lock.Status,
		lock.CreatedAt, lock.UpdatedAt, lock.ExpiresAt, lock.CorrelationID)

	if isUniqueViolation(err) {
		s.metrics.observe(op, start, ErrDuplicateRequestID)
		return ErrDuplicateRequestID
	}
	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("failed to insert lock", "request_id", lock.RequestID, "room_id", lock.RoomID, "error", err)
	}
	return err
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresLockStore) Update(ctx context.Context, lock domain.RoomLock) error {
	const op = "update"
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE locks SET status = $1, updated_at = $2
		WHERE id = $3`, lock.Status, lock.UpdatedAt, lock.ID)

	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("failed to update lock", "id", lock.ID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresLockStore) FindActiveOverlapping(ctx context.Context, roomID string, start, end time.Time) (domain.RoomLock, bool, error) {
	const op = "find_active_overlapping"
	queryStart := time.Now()

	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, room_id, start_date, end_date, status,
		       created_at, updated_at, expires_at, correlation_id
		FROM locks
		WHERE room_id = $1
		  AND status IN ('HELD', 'CONFIRMED')
		  AND start_date < $3
		  AND end_date > $2
		LIMIT 1`, roomID, start, end)

	lock, err := scanLock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.metrics.observe(op, queryStart, nil)
		return domain.RoomLock{}, false, nil
	}
	s.metrics.observe(op, queryStart, err)
	if err != nil {
		return domain.RoomLock{}, false, err
	}
	return lock, true, nil
}

func (s *PostgresLockStore) FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]domain.RoomLock, error) {
	const op = "find_expired_held"
	start := time.Now()

	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, room_id, start_date, end_date, status,
		       created_at, updated_at, expires_at, correlation_id
		FROM locks
		WHERE status = 'HELD' AND expires_at < $1
		LIMIT $2`, now, limit)
	s.metrics.observe(op, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []domain.RoomLock
	for rows.Next() {
		lock, err := scanLockRows(rows)
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row pgx.Row) (domain.RoomLock, error) {
	return scanLockRow(row)
}

func scanLockRows(rows pgx.Rows) (domain.RoomLock, error) {
	return scanLockRow(rows)
}

func scanLockRow(r rowScanner) (domain.RoomLock, error) {
	var l domain.RoomLock
	var status string
	err := r.Scan(&l.ID, &l.RequestID, &l.RoomID, &l.StartDate, &l.EndDate, &status,
		&l.CreatedAt, &l.UpdatedAt, &l.ExpiresAt, &l.CorrelationID)
	l.Status = domain.Status(status)
	return l, err
}

// PostgresRoomStore implements RoomStore against a pgxpool.Pool.
type PostgresRoomStore struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *StoreMetrics
}

// NewPostgresRoomStore builds a PostgresRoomStore.
func NewPostgresRoomStore(pool *pgxpool.Pool, logger *slog.Logger, metrics *StoreMetrics) *PostgresRoomStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRoomStore{pool: pool, logger: logger, metrics: metrics}
}

func (s *PostgresRoomStore) Get(ctx context.Context, roomID string) (domain.Room, error) {
	const op = "get_room"
	start := time.Now()

	var r domain.Room
	err := s.pool.QueryRow(ctx, `
		SELECT id, available, times_booked FROM rooms WHERE id = $1`, roomID,
	).Scan(&r.ID, &r.Available, &r.TimesBooked)

	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
	}
	s.metrics.observe(op, start, err)
	return r, err
}

func (s *PostgresRoomStore) IncrementTimesBooked(ctx context.Context, roomID string) error {
	const op = "increment_times_booked"
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET times_booked = times_booked + 1 WHERE id = $1`, roomID)

	s.metrics.observe(op, start, err)
	if err != nil {
		s.logger.Error("failed to increment times_booked", "room_id", roomID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
