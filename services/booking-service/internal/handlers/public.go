package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/availability"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/proofstore"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// PublicHandler serves the unauthenticated booking surface.
type PublicHandler struct {
	svc      *booking.Service
	resolver *availability.Resolver
	proofs   proofstore.Store
	logger   *slog.Logger
}

func NewPublicHandler(svc *booking.Service, resolver *availability.Resolver, proofs proofstore.Store, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, resolver: resolver, proofs: proofs, logger: logger}
}

type createAppointmentRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

type appointmentResponse struct {
	AppointmentID string   `json:"appointment_id"`
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Status        string   `json:"status"`
	Amount        *float64 `json:"amount,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// Create accepts a public booking submission, JSON or multipart. The
// multipart form may carry a payment_proof file; it is stored first and only
// its reference travels into the core.
func (h *PublicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req booking.ReserveRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
			return
		}
		req = booking.ReserveRequest{
			Name:    r.FormValue("name"),
			Email:   r.FormValue("email"),
			Phone:   r.FormValue("phone"),
			Message: r.FormValue("message"),
			Date:    r.FormValue("date"),
			Time:    r.FormValue("time"),
		}
		if file, header, err := r.FormFile("payment_proof"); err == nil {
			defer file.Close()
			ref, storeErr := h.proofs.Store(r.Context(), file, header.Filename)
			if storeErr != nil {
				h.logger.Error("payment proof upload failed", "err", storeErr)
				writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment proof upload failed"})
				return
			}
			req.PaymentProof = ref
		}
	} else {
		var body createAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
			return
		}
		req = booking.ReserveRequest{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Message: body.Message,
			Date:    body.Date,
			Time:    body.Time,
		}
	}

	appt, err := h.svc.Reserve(r.Context(), req)
	if err != nil {
		// A stored proof for a submission that failed validation would leak;
		// release it before answering.
		if req.PaymentProof != "" {
			if delErr := h.proofs.Delete(r.Context(), req.PaymentProof); delErr != nil {
				h.logger.Warn("orphan payment proof cleanup failed", "err", delErr, "ref", req.PaymentProof)
			}
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// Slots lists the grid hours still open on a date.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}
	date, err := slot.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "malformed date"})
		return
	}

	times, err := h.resolver.BookableTimes(r.Context(), date)
	if err != nil {
		h.logger.Error("bookable times lookup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if times == nil {
		times = []string{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{Date: raw, Times: times})
}

type bookedSlotItem struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Booked lists the (date, time) pairs held by active appointments, nothing
// more: calendar UIs render occupancy from this without seeing requester data.
func (h *PublicHandler) Booked(w http.ResponseWriter, r *http.Request) {
	booked, err := h.resolver.ListBooked(r.Context())
	if err != nil {
		h.logger.Error("booked slots lookup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	items := make([]bookedSlotItem, 0, len(booked))
	for _, b := range booked {
		items = append(items, bookedSlotItem{
			Date: b.Date.Format(slot.DateLayout),
			Time: b.Time,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: appt.ID,
		Date:          appt.SlotDate.Format(slot.DateLayout),
		Time:          appt.SlotTime,
		Status:        string(appt.Status),
		Amount:        appt.Amount,
		Currency:      appt.Currency,
	}
}
