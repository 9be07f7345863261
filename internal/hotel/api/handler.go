// Package api exposes the Hotel service's HTTP surface: hold/confirm/release
// on rooms, plus health and readiness probes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vitaliisemenov/reservation-saga/internal/hotel/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/engine"
	"github.com/vitaliisemenov/reservation-saga/internal/hotel/store"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/httperr"
	middleware "github.com/vitaliisemenov/reservation-saga/internal/platform/httpmw"
)

// Handler wires the Hotel lock engine to HTTP.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
	ready  func() error
}

// New builds a Handler.
func New(eng *engine.Engine, logger *slog.Logger, ready func() error) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: eng, logger: logger, ready: ready}
}

// Routes registers the Hotel HTTP surface on a gorilla/mux router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/rooms/{room_id}/hold", h.handleHold).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room_id}/confirm", h.handleConfirm).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room_id}/release", h.handleRelease).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.handleReadyz).Methods(http.MethodGet)
	return r
}

type holdRequest struct {
	RequestID string `json:"request_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type requestIDBody struct {
	RequestID string `json:"request_id"`
}

type lockResponse struct {
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
	RoomID    string `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

func toLockResponse(l domain.RoomLock) lockResponse {
	return lockResponse{
		ID:        l.ID,
		RequestID: l.RequestID,
		RoomID:    l.RoomID,
		StartDate: l.StartDate.Format(time.RFC3339),
		EndDate:   l.EndDate.Format(time.RFC3339),
		Status:    string(l.Status),
	}
}

func (h *Handler) handleHold(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	correlationID := middleware.GetCorrelationID(r.Context())

	var body holdRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, httperr.Validation("malformed request body").WithCorrelationID(correlationID))
		return
	}

	start, err := time.Parse(time.RFC3339, body.StartDate)
	if err != nil {
		httperr.Write(w, httperr.Validation("start_date must be RFC3339").WithCorrelationID(correlationID))
		return
	}
	end, err := time.Parse(time.RFC3339, body.EndDate)
	if err != nil {
		httperr.Write(w, httperr.Validation("end_date must be RFC3339").WithCorrelationID(correlationID))
		return
	}

	lock, err := h.engine.Hold(r.Context(), domain.NewHoldInput{
		RequestID: body.RequestID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
	}, correlationID)
	if err != nil {
		h.writeDomainError(w, err, correlationID)
		return
	}

	h.writeJSON(w, http.StatusOK, toLockResponse(lock))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var body requestIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, httperr.Validation("malformed request body").WithCorrelationID(correlationID))
		return
	}

	lock, err := h.engine.Confirm(r.Context(), body.RequestID)
	if err != nil {
		h.writeDomainError(w, err, correlationID)
		return
	}
	h.writeJSON(w, http.StatusOK, toLockResponse(lock))
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var body requestIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, httperr.Validation("malformed request body").WithCorrelationID(correlationID))
		return
	}

	lock, err := h.engine.Release(r.Context(), body.RequestID)
	if err != nil {
		h.writeDomainError(w, err, correlationID)
		return
	}
	h.writeJSON(w, http.StatusOK, toLockResponse(lock))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := h.ready(); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, correlationID string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoomID),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrStartInPast):
		httperr.Write(w, httperr.Validation(err.Error()).WithCorrelationID(correlationID))
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrLockNotFound), errors.Is(err, store.ErrNotFound):
		httperr.Write(w, httperr.NotFound("resource").WithCorrelationID(correlationID))
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrRoomUnavailable):
		httperr.Write(w, httperr.Conflict(err.Error()).WithCorrelationID(correlationID))
	case errors.Is(err, domain.ErrAlreadyReleased), errors.Is(err, domain.ErrAlreadyExpired),
		errors.Is(err, domain.ErrLockExpired), errors.Is(err, domain.ErrWrongState):
		httperr.Write(w, httperr.InvalidState(err.Error()).WithCorrelationID(correlationID))
	default:
		h.logger.Error("unexpected engine error", "error", err)
		httperr.Write(w, httperr.Internal("internal server error").WithCorrelationID(correlationID))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
