package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
)

func setupBookingTestDB(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("booking_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	schema := `
	CREATE TABLE reservations (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		correlation_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX idx_reservations_user ON reservations(user_id);
	CREATE INDEX idx_reservations_status_created ON reservations(status, created_at);
	`
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)

	return pool
}

func TestPostgresReservationStore_InsertAndGetByRequestID(t *testing.T) {
	pool := setupBookingTestDB(t)
	defer pool.Close()

	s := NewPostgresReservationStore(pool, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	r := domain.NewPending(uuid.NewString(), domain.NewReservationInput{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-1",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now)

	require.NoError(t, s.Insert(ctx, r))

	got, err := s.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.Equal(t, r.ID, got.ID)
	require.Equal(t, domain.StatusPending, got.Status)

	err = s.Insert(ctx, r)
	require.ErrorIs(t, err, ErrDuplicateRequestID)
}

func TestPostgresReservationStore_Update(t *testing.T) {
	pool := setupBookingTestDB(t)
	defer pool.Close()

	s := NewPostgresReservationStore(pool, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	r := domain.NewPending(uuid.NewString(), domain.NewReservationInput{
		RequestID: "req-2", UserID: "user-1", RoomID: "room-1",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now)
	require.NoError(t, s.Insert(ctx, r))

	confirmed, err := r.Confirm()
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, confirmed))

	got, err := s.GetByRequestID(ctx, "req-2")
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestPostgresReservationStore_UpdateNotFound(t *testing.T) {
	pool := setupBookingTestDB(t)
	defer pool.Close()

	s := NewPostgresReservationStore(pool, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	r := domain.NewPending("missing-id", domain.NewReservationInput{
		RequestID: "req-missing", UserID: "user-1", RoomID: "room-1",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now)

	err := s.Update(ctx, r)
	require.ErrorIs(t, err, ErrNotFound)
}
