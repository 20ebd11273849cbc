package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// AdminHandler serves the reviewer surface. The gateway has already verified
// the reviewer token and injected X-Reviewer-Id; this service trusts it.
type AdminHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewAdminHandler(svc *booking.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

type adminAppointmentItem struct {
	AppointmentID   string   `json:"appointment_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Message         string   `json:"message,omitempty"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	Status          string   `json:"status"`
	Amount          *float64 `json:"amount,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	PaymentProof    string   `json:"payment_proof,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	ValidatedBy     string   `json:"validated_by,omitempty"`
	ValidatedAt     string   `json:"validated_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	appts, err := h.svc.ListAppointments(r.Context(), limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		writeError(w, err)
		return
	}
	items := make([]adminAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAdminItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminItem(appt))
}

func (h *AdminHandler) Validate(w http.ResponseWriter, r *http.Request) {
	reviewerID := strings.TrimSpace(r.Header.Get("X-Reviewer-Id"))
	appt, err := h.svc.Validate(r.Context(), r.PathValue("id"), reviewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminItem(appt))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.Body != nil {
		// The reason is optional; an empty body means an empty reason.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	appt, err := h.svc.Reject(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminItem(appt))
}

func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminItem(appt))
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *AdminHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), r.PathValue("id"), req.Date, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminItem(appt))
}

type blockDayRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type blockedDayItem struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req blockDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	day, err := h.svc.Block(r.Context(), req.Date, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, blockedDayItem{
		Date:   day.Day.Format(slot.DateLayout),
		Reason: day.Reason,
	})
}

func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unblock(r.Context(), r.PathValue("date")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.ListBlocked(r.Context())
	if err != nil {
		h.logger.Error("list blocked days failed", "err", err)
		writeError(w, err)
		return
	}
	items := make([]blockedDayItem, 0, len(days))
	for _, d := range days {
		items = append(items, blockedDayItem{
			Date:   d.Day.Format(slot.DateLayout),
			Reason: d.Reason,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type setPriceRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type priceItem struct {
	Time     string  `json:"time"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (h *AdminHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	p, err := h.svc.SetPrice(r.Context(), r.PathValue("time"), req.Amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceItem{Time: p.SlotTime, Amount: p.Amount, Currency: p.Currency})
}

func (h *AdminHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.svc.ListPrices(r.Context())
	if err != nil {
		h.logger.Error("list prices failed", "err", err)
		writeError(w, err)
		return
	}
	items := make([]priceItem, 0, len(prices))
	for _, p := range prices {
		items = append(items, priceItem{Time: p.SlotTime, Amount: p.Amount, Currency: p.Currency})
	}
	writeJSON(w, http.StatusOK, items)
}

func toAdminItem(appt model.Appointment) adminAppointmentItem {
	item := adminAppointmentItem{
		AppointmentID:   appt.ID,
		Name:            appt.Name,
		Email:           appt.Email,
		Phone:           appt.Phone,
		Message:         appt.Message,
		Date:            appt.SlotDate.Format(slot.DateLayout),
		Time:            appt.SlotTime,
		Status:          string(appt.Status),
		Amount:          appt.Amount,
		Currency:        appt.Currency,
		PaymentProof:    appt.PaymentProof,
		RejectionReason: appt.RejectionReason,
		ValidatedBy:     appt.ValidatedBy,
		CreatedAt:       appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.ValidatedAt != nil {
		item.ValidatedAt = appt.ValidatedAt.UTC().Format(time.RFC3339)
	}
	return item
}
