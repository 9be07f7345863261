package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/reservation-saga/internal/platform/resilience"
)

func fastPolicy() *resilience.RetryPolicy {
	return &resilience.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestClient_Hold_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rooms/room-1/hold", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(LockResponse{ID: "lock-1", RequestID: "req-1", RoomID: "room-1", Status: "HELD"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryPolicy: fastPolicy()}, nil)
	now := time.Now()
	resp, err := c.Hold(t.Context(), HoldRequest{RequestID: "req-1", RoomID: "room-1", StartDate: now, EndDate: now.AddDate(0, 0, 2)}, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, "HELD", resp.Status)
}

func TestClient_Hold_ConflictNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryPolicy: fastPolicy()}, nil)
	now := time.Now()
	_, err := c.Hold(t.Context(), HoldRequest{RequestID: "req-1", RoomID: "room-1", StartDate: now, EndDate: now.AddDate(0, 0, 2)}, "corr-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "conflict must not be retried")
}

func TestClient_Hold_RetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(LockResponse{ID: "lock-1", Status: "HELD"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryPolicy: fastPolicy()}, nil)
	now := time.Now()
	resp, err := c.Hold(t.Context(), HoldRequest{RequestID: "req-1", RoomID: "room-1", StartDate: now, EndDate: now.AddDate(0, 0, 2)}, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, "HELD", resp.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Confirm_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryPolicy: fastPolicy()}, nil)
	_, err := c.Confirm(t.Context(), "room-1", "missing", "corr-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Release_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryPolicy: fastPolicy()}, nil)
	_, err := c.Release(t.Context(), "room-1", "req-1", "corr-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
