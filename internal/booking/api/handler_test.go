package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/gateway"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/saga"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/store"
)

type stubHotel struct {
	holdErr    error
	confirmErr error
}

func (s *stubHotel) Hold(ctx context.Context, req gateway.HoldRequest, correlationID string) (gateway.LockResponse, error) {
	if s.holdErr != nil {
		return gateway.LockResponse{}, s.holdErr
	}
	return gateway.LockResponse{ID: "lock-1", RequestID: req.RequestID, RoomID: req.RoomID, Status: "HELD"}, nil
}

func (s *stubHotel) Confirm(ctx context.Context, roomID, requestID, correlationID string) (gateway.LockResponse, error) {
	if s.confirmErr != nil {
		return gateway.LockResponse{}, s.confirmErr
	}
	return gateway.LockResponse{ID: "lock-1", RequestID: requestID, RoomID: roomID, Status: "CONFIRMED"}, nil
}

func (s *stubHotel) Release(ctx context.Context, roomID, requestID, correlationID string) (gateway.LockResponse, error) {
	return gateway.LockResponse{ID: "lock-1", RequestID: requestID, RoomID: roomID, Status: "RELEASED"}, nil
}

func newTestHandler(now time.Time, hotel *stubHotel) *Handler {
	reservations := store.NewMemoryReservationStore()
	orchestrator := saga.New(reservations, hotel, nil, nil).WithClock(func() time.Time { return now })
	return New(orchestrator, nil, nil)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreate_Success(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{})

	rec := postJSON(t, h.Routes(), "/bookings", createBookingRequest{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1).Format(time.RFC3339),
		EndDate:   now.AddDate(0, 0, 3).Format(time.RFC3339),
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp reservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestHandleCreate_HoldConflictReturns409(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{holdErr: gateway.ErrConflict})

	rec := postJSON(t, h.Routes(), "/bookings", createBookingRequest{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1).Format(time.RFC3339),
		EndDate:   now.AddDate(0, 0, 3).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp reservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestHandleCreate_ConfirmFailureReturns500(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{confirmErr: errors.New("boom")})

	rec := postJSON(t, h.Routes(), "/bookings", createBookingRequest{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1).Format(time.RFC3339),
		EndDate:   now.AddDate(0, 0, 3).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp reservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestHandleCreate_HoldUnavailableReturns503(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{holdErr: gateway.ErrUnavailable})

	rec := postJSON(t, h.Routes(), "/bookings", createBookingRequest{
		RequestID: "req-1", UserID: "user-1", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1).Format(time.RFC3339),
		EndDate:   now.AddDate(0, 0, 3).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp reservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestHandleCreate_InvalidInputReturns400(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{})

	rec := postJSON(t, h.Routes(), "/bookings", createBookingRequest{
		RequestID: "req-1", UserID: "", RoomID: "room-7",
		StartDate: now.AddDate(0, 0, 1).Format(time.RFC3339),
		EndDate:   now.AddDate(0, 0, 3).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthzAndReadyz(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(now, &stubHotel{})
	router := h.Routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
