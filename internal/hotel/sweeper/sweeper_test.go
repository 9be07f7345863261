package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
)

func TestSweeper_ExpiresStaleHolds(t *testing.T) {
	locks := store.NewMemoryLockStore()
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	stale := domain.NewHeld("lock-1", domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1", now.Add(-time.Hour), time.Minute)
	require.NoError(t, locks.Insert(context.Background(), stale))

	fresh := domain.NewHeld("lock-2", domain.NewHoldInput{
		RequestID: "B", RoomID: "room-8",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-2", now, 15*time.Minute)
	require.NoError(t, locks.Insert(context.Background(), fresh))

	s := New(locks, nil, nil, time.Millisecond)
	s.now = func() time.Time { return now }
	s.sweepOnce(context.Background())

	got, err := locks.GetByRequestID(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	still, err := locks.GetByRequestID(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHeld, still.Status)
}

func TestSweeper_Run_StopsOnContextCancel(t *testing.T) {
	locks := store.NewMemoryLockStore()
	s := New(locks, nil, nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
