package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
)

// inProcessLocker is an in-memory roomlock.Locker test double: one mutex
// per room, keyed lazily.
type inProcessLocker struct {
	mu    sync.Mutex
	byKey map[string]*sync.Mutex
}

func newInProcessLocker() *inProcessLocker {
	return &inProcessLocker{byKey: make(map[string]*sync.Mutex)}
}

func (l *inProcessLocker) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.byKey[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.byKey[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

func newTestEngine(now time.Time, rooms ...domain.Room) (*Engine, store.LockStore) {
	locks := store.NewMemoryLockStore()
	roomStore := store.NewMemoryRoomStore(rooms...)
	locker := newInProcessLocker()
	e := New(locks, roomStore, locker, nil, nil, 15*time.Minute).WithClock(func() time.Time { return now })
	return e, locks
}

func TestEngine_HoldHappyPath(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	lock, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHeld, lock.Status)
}

func TestEngine_HoldIsIdempotent(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	in := domain.NewHoldInput{RequestID: "A", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3)}
	first, err := e.Hold(context.Background(), in, "corr-1")
	require.NoError(t, err)

	second, err := e.Hold(context.Background(), in, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEngine_HoldConflict(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "X", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)

	_, err = e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "B", RoomID: "room-7", StartDate: now.AddDate(0, 0, 2), EndDate: now.AddDate(0, 0, 4),
	}, "corr-2")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestEngine_HoldAdjacentIntervalsBothSucceed(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "P", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)

	_, err = e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "Q", RoomID: "room-7", StartDate: now.AddDate(0, 0, 3), EndDate: now.AddDate(0, 0, 5),
	}, "corr-2")
	require.NoError(t, err)
}

func TestEngine_HoldRejectsUnavailableRoom(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: false})

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)
}

func TestEngine_HoldRejectsUnknownRoom(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now)

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "missing", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestEngine_ConfirmIncrementsTimesBooked(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	locks := store.NewMemoryLockStore()
	rooms := store.NewMemoryRoomStore(domain.Room{ID: "room-7", Available: true})
	e := New(locks, rooms, newInProcessLocker(), nil, nil, 15*time.Minute).WithClock(func() time.Time { return now })

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)

	lock, err := e.Confirm(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, lock.Status)

	room, err := rooms.Get(context.Background(), "room-7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), room.TimesBooked)

	// idempotent re-confirm does not double count
	_, err = e.Confirm(context.Background(), "A")
	require.NoError(t, err)
	room, err = rooms.Get(context.Background(), "room-7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), room.TimesBooked)
}

func TestEngine_ConfirmFailsWhenExpired(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)

	e2 := e.WithClock(func() time.Time { return now.Add(16 * time.Minute) })
	_, err = e2.Confirm(context.Background(), "A")
	assert.ErrorIs(t, err, domain.ErrLockExpired)
}

func TestEngine_ReleaseOnConfirmedIsNoOp(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now, domain.Room{ID: "room-7", Available: true})

	_, err := e.Hold(context.Background(), domain.NewHoldInput{
		RequestID: "A", RoomID: "room-7", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
	}, "corr-1")
	require.NoError(t, err)

	_, err = e.Confirm(context.Background(), "A")
	require.NoError(t, err)

	lock, err := e.Release(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, lock.Status)
}

func TestEngine_ConfirmAndReleaseNotFound(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(now)

	_, err := e.Confirm(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrLockNotFound)

	_, err = e.Release(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrLockNotFound)
}
