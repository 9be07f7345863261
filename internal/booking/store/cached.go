package store

import (
	"context"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/idempotency"
)

// CachedReservationStore fronts a ReservationStore's request_id lookup
// with an in-process LRU, so a saga retry storm against the same
// request_id does not round-trip to Postgres on every attempt. The
// underlying store remains the system of record; a cache miss always
// falls through to it.
type CachedReservationStore struct {
	ReservationStore
	cache *idempotency.Cache[domain.Reservation]
}

// NewCachedReservationStore wraps next with a read-through LRU of the
// given size.
func NewCachedReservationStore(next ReservationStore, size int) (*CachedReservationStore, error) {
	cache, err := idempotency.New[domain.Reservation](size)
	if err != nil {
		return nil, err
	}
	return &CachedReservationStore{ReservationStore: next, cache: cache}, nil
}

func (s *CachedReservationStore) GetByRequestID(ctx context.Context, requestID string) (domain.Reservation, error) {
	if r, ok := s.cache.Get(requestID); ok {
		return r, nil
	}
	r, err := s.ReservationStore.GetByRequestID(ctx, requestID)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.cache.Put(requestID, r)
	return r, nil
}

func (s *CachedReservationStore) Insert(ctx context.Context, r domain.Reservation) error {
	if err := s.ReservationStore.Insert(ctx, r); err != nil {
		return err
	}
	s.cache.Put(r.RequestID, r)
	return nil
}

func (s *CachedReservationStore) Update(ctx context.Context, r domain.Reservation) error {
	if err := s.ReservationStore.Update(ctx, r); err != nil {
		return err
	}
	s.cache.Put(r.RequestID, r)
	return nil
}
