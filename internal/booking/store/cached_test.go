package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
)

func TestCachedReservationStore_InsertWritesThroughAndGetByRequestIDReturnsRow(t *testing.T) {
	inner := NewMemoryReservationStore()
	cached, err := NewCachedReservationStore(inner, 8)
	require.NoError(t, err)

	now := time.Now()
	r := domain.NewPending("res-1", domain.NewReservationInput{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-1",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now)
	require.NoError(t, cached.Insert(context.Background(), r))

	got, err := cached.GetByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	got, err = inner.GetByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID, "insert must also populate the underlying store")
}

func TestCachedReservationStore_UpdateRefreshesCache(t *testing.T) {
	inner := NewMemoryReservationStore()
	cached, err := NewCachedReservationStore(inner, 8)
	require.NoError(t, err)

	now := time.Now()
	r := domain.NewPending("res-1", domain.NewReservationInput{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-1",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now)
	require.NoError(t, cached.Insert(context.Background(), r))

	confirmed, err := r.Confirm()
	require.NoError(t, err)
	require.NoError(t, cached.Update(context.Background(), confirmed))

	got, err := cached.GetByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
}

func TestCachedReservationStore_MissFallsThroughToUnderlying(t *testing.T) {
	inner := NewMemoryReservationStore()
	cached, err := NewCachedReservationStore(inner, 8)
	require.NoError(t, err)

	_, err = cached.GetByRequestID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
