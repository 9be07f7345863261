// Package api exposes the Booking service's HTTP surface: create a
// reservation, plus health and readiness probes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vitaliisemenov/reservation-saga/internal/booking/domain"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/gateway"
	"github.com/vitaliisemenov/reservation-saga/internal/booking/saga"
	"github.com/vitaliisemenov/reservation-saga/internal/platform/httperr"
	middleware "github.com/vitaliisemenov/reservation-saga/internal/platform/httpmw"
)

// Handler wires the saga Orchestrator to HTTP.
type Handler struct {
	orchestrator *saga.Orchestrator
	logger       *slog.Logger
	ready        func() error
}

// New builds a Handler.
func New(orchestrator *saga.Orchestrator, logger *slog.Logger, ready func() error) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger, ready: ready}
}

// Routes registers the Booking HTTP surface on a gorilla/mux router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/bookings", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.handleReadyz).Methods(http.MethodGet)
	return r
}

type createBookingRequest struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	RoomID    string `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type reservationResponse struct {
	ID            string `json:"id"`
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	RoomID        string `json:"room_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID,
		RequestID:     r.RequestID,
		UserID:        r.UserID,
		RoomID:        r.RoomID,
		StartDate:     r.StartDate.Format(time.RFC3339),
		EndDate:       r.EndDate.Format(time.RFC3339),
		Status:        string(r.Status),
		CorrelationID: r.CorrelationID,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var body createBookingRequest
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

	reservation, err := h.orchestrator.CreateReservation(r.Context(), domain.NewReservationInput{
		RequestID: body.RequestID,
		UserID:    body.UserID,
		RoomID:    body.RoomID,
		StartDate: start,
		EndDate:   end,
	}, correlationID)
	if err != nil {
		if reservation.ID == "" {
			h.writeDomainError(w, err, correlationID)
			return
		}
		// The saga ran a room hold before failing, so it already persisted a
		// terminal CANCELLED reservation; return that body, not a bare error.
		h.writeJSON(w, h.statusCodeForError(err), toReservationResponse(reservation))
		return
	}

	status := http.StatusCreated
	if reservation.Status == domain.StatusCancelled {
		status = http.StatusConflict
	}
	h.writeJSON(w, status, toReservationResponse(reservation))
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
	case errors.Is(err, domain.ErrInvalidRoomID), errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidInterval), errors.Is(err, domain.ErrStartInPast):
		httperr.Write(w, httperr.Validation(err.Error()).WithCorrelationID(correlationID))
	case errors.Is(err, gateway.ErrConflict):
		httperr.Write(w, httperr.Conflict("room is unavailable for the requested interval").WithCorrelationID(correlationID))
	case errors.Is(err, gateway.ErrNotFound):
		httperr.Write(w, httperr.NotFound("room").WithCorrelationID(correlationID))
	case errors.Is(err, gateway.ErrUnavailable):
		httperr.Write(w, httperr.UpstreamUnavailable(err.Error()).WithCorrelationID(correlationID))
	default:
		h.logger.Error("unexpected saga error", "error", err)
		httperr.Write(w, httperr.Internal("internal server error").WithCorrelationID(correlationID))
	}
}

// statusCodeForError maps a saga failure cause to the HTTP status used when
// the response body still carries a terminal reservation (the saga already
// persisted a CANCELLED record before failing).
func (h *Handler) statusCodeForError(err error) int {
	switch {
	case errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		h.logger.Error("unexpected saga error", "error", err)
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
