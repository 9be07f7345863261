package store

import (
	"context"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/idempotency"
)

// CachedLockStore fronts a LockStore's request_id lookup with an
// in-process LRU, so a retry storm against the same hold/confirm/release
// does not round-trip to Postgres on every attempt. The underlying store
// remains the system of record; a cache miss always falls through to it.
type CachedLockStore struct {
	LockStore
	cache *idempotency.Cache[domain.RoomLock]
}

// NewCachedLockStore wraps next with a read-through LRU of the given size.
func NewCachedLockStore(next LockStore, size int) (*CachedLockStore, error) {
	cache, err := idempotency.New[domain.RoomLock](size)
	if err != nil {
		return nil, err
	}
	return &CachedLockStore{LockStore: next, cache: cache}, nil
}

func (s *CachedLockStore) GetByRequestID(ctx context.Context, requestID string) (domain.RoomLock, error) {
	if lock, ok := s.cache.Get(requestID); ok {
		return lock, nil
	}
	lock, err := s.LockStore.GetByRequestID(ctx, requestID)
	if err != nil {
		return domain.RoomLock{}, err
	}
	s.cache.Put(requestID, lock)
	return lock, nil
}

func (s *CachedLockStore) Insert(ctx context.Context, lock domain.RoomLock) error {
	if err := s.LockStore.Insert(ctx, lock); err != nil {
		return err
	}
	s.cache.Put(lock.RequestID, lock)
	return nil
}

func (s *CachedLockStore) Update(ctx context.Context, lock domain.RoomLock) error {
	if err := s.LockStore.Update(ctx, lock); err != nil {
		return err
	}
	s.cache.Put(lock.RequestID, lock)
	return nil
}
