package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the booking error taxonomy onto HTTP statuses. Slot
// conflicts get their own 409 payload so clients can tell a lost race apart
// from bad input and offer another slot.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, booking.ErrDateUnavailable):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, booking.ErrSlotTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "slot already taken"})
	case errors.Is(err, booking.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "status does not permit this action"})
	case errors.Is(err, booking.ErrAlreadyBlocked):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "date already blocked"})
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
