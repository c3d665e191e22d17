// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bibeklams/Movie-Booking-App/internal/model"
	"github.com/bibeklams/Movie-Booking-App/internal/repository"
	"github.com/bibeklams/Movie-Booking-App/internal/service"
	"github.com/go-chi/chi/v5"
)

// BookingHandler holds all HTTP handlers for the movie booking API.
type BookingHandler struct {
	svc *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateScreening handles POST /screenings
// Creates a new screening with a seat block of the requested size.
func (h *BookingHandler) CreateScreening(w http.ResponseWriter, r *http.Request) {
	var req model.CreateScreeningRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	screening, err := h.svc.CreateScreening(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create screening")
		return
	}

	writeJSON(w, http.StatusCreated, screening)
}

// ListScreenings handles GET /screenings
// Returns a JSON array of all screenings with their seat maps.
func (h *BookingHandler) ListScreenings(w http.ResponseWriter, r *http.Request) {
	screenings, err := h.svc.ListScreenings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list screenings")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if screenings == nil {
		screenings = []model.Screening{}
	}

	writeJSON(w, http.StatusOK, screenings)
}

// GetScreening handles GET /screenings/{id}
// Returns a single screening by its UUID.
func (h *BookingHandler) GetScreening(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	screening, err := h.svc.GetScreening(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "screening not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get screening")
		return
	}

	writeJSON(w, http.StatusOK, screening)
}

// Reserve handles POST /screenings/{id}/reserve
// Atomically books the requested seats; the request fully succeeds or
// fully fails.
func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.ReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	seats, err := h.svc.Reserve(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "screening not found")
		case errors.Is(err, repository.ErrSeatUnavailable):
			writeError(w, http.StatusConflict, "one or more requested seats are unavailable")
		default:
			// Store-level failure: nothing was booked, the client may retry.
			writeError(w, http.StatusServiceUnavailable, "reservation could not be completed, please retry")
		}
		return
	}

	writeJSON(w, http.StatusOK, model.ReserveResponse{ScreeningID: id, Seats: seats})
}

// BookingHistory handles GET /bookings
// Returns every screening with at least one booked seat and its booked
// seat numbers.
func (h *BookingHandler) BookingHistory(w http.ResponseWriter, r *http.Request) {
	booked, err := h.svc.BookingHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booking history")
		return
	}

	if booked == nil {
		booked = []model.BookedScreening{}
	}

	writeJSON(w, http.StatusOK, booked)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
