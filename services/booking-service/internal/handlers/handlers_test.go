package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/availability"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/proofstore"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// Dates far enough out that the today-or-later rule never trips while the
// suite ages.
const (
	futureDate      = "2031-06-10"
	otherFutureDate = "2031-06-11"
)

type stubAppointments struct {
	mu   sync.Mutex
	byID map[string]model.Appointment
}

func slotKey(date time.Time, slotTime string) string {
	return date.Format(slot.DateLayout) + " " + slotTime
}

func (s *stubAppointments) holder(date time.Time, slotTime string) string {
	want := slotKey(date, slotTime)
	for id, a := range s.byID {
		if a.Status.Active() && slotKey(a.SlotDate, a.SlotTime) == want {
			return id
		}
	}
	return ""
}

func (s *stubAppointments) Reserve(_ context.Context, appt *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holder(appt.SlotDate, appt.SlotTime) != "" {
		return booking.ErrSlotTaken
	}
	s.byID[appt.ID] = *appt
	return nil
}

func (s *stubAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, booking.ErrNotFound
	}
	return a, nil
}

func (s *stubAppointments) update(id string, from model.Status, apply func(*model.Appointment)) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, booking.ErrNotFound
	}
	if a.Status != from {
		return model.Appointment{}, booking.ErrInvalidTransition
	}
	apply(&a)
	s.byID[id] = a
	return a, nil
}

func (s *stubAppointments) Validate(_ context.Context, id, reviewerID string, at time.Time) (model.Appointment, error) {
	return s.update(id, model.StatusPending, func(a *model.Appointment) {
		a.Status = model.StatusValidated
		a.ValidatedBy = reviewerID
		a.ValidatedAt = &at
	})
}

func (s *stubAppointments) Reject(_ context.Context, id, reason string) (model.Appointment, error) {
	return s.update(id, model.StatusPending, func(a *model.Appointment) {
		a.Status = model.StatusRejected
		a.RejectionReason = reason
	})
}

func (s *stubAppointments) Complete(_ context.Context, id string) (model.Appointment, error) {
	return s.update(id, model.StatusValidated, func(a *model.Appointment) {
		a.Status = model.StatusCompleted
	})
}

func (s *stubAppointments) Move(_ context.Context, id string, date time.Time, slotTime string, amount *float64, currency string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, booking.ErrNotFound
	}
	if !a.Status.Active() {
		return model.Appointment{}, booking.ErrInvalidTransition
	}
	if holder := s.holder(date, slotTime); holder != "" && holder != id {
		return model.Appointment{}, booking.ErrSlotTaken
	}
	a.SlotDate = date
	a.SlotTime = slotTime
	a.Amount = amount
	a.Currency = currency
	s.byID[id] = a
	return a, nil
}

func (s *stubAppointments) ActiveSlotExists(_ context.Context, date time.Time, slotTime string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holder(date, slotTime) != "", nil
}

func (s *stubAppointments) ListActiveSlots(_ context.Context) ([]slot.Booked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []slot.Booked
	for _, a := range s.byID {
		if a.Status.Active() {
			out = append(out, slot.Booked{Date: a.SlotDate, Time: a.SlotTime})
		}
	}
	return out, nil
}

func (s *stubAppointments) List(_ context.Context, limit int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Appointment, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubDays struct {
	mu   sync.Mutex
	days map[string]model.UnavailableDay
}

func (s *stubDays) Block(_ context.Context, day model.UnavailableDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := day.Day.Format(slot.DateLayout)
	if _, ok := s.days[k]; ok {
		return booking.ErrAlreadyBlocked
	}
	s.days[k] = day
	return nil
}

func (s *stubDays) Unblock(_ context.Context, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := date.Format(slot.DateLayout)
	if _, ok := s.days[k]; !ok {
		return booking.ErrNotFound
	}
	delete(s.days, k)
	return nil
}

func (s *stubDays) IsBlocked(_ context.Context, date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.days[date.Format(slot.DateLayout)]
	return ok, nil
}

func (s *stubDays) List(_ context.Context) ([]model.UnavailableDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UnavailableDay, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d)
	}
	return out, nil
}

type stubPrices struct {
	mu     sync.Mutex
	byTime map[string]model.SlotPrice
}

func (s *stubPrices) Get(_ context.Context, slotTime string) (model.SlotPrice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byTime[slotTime]
	return p, ok, nil
}

func (s *stubPrices) Upsert(_ context.Context, p model.SlotPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTime[p.SlotTime] = p
	return nil
}

func (s *stubPrices) List(_ context.Context) ([]model.SlotPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SlotPrice, 0, len(s.byTime))
	for _, p := range s.byTime {
		out = append(out, p)
	}
	return out, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, booking.Event) error { return nil }

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	appts := &stubAppointments{byID: map[string]model.Appointment{}}
	days := &stubDays{days: map[string]model.UnavailableDay{}}
	prices := &stubPrices{byTime: map[string]model.SlotPrice{}}
	logger := slog.Default()

	svc := booking.NewService(appts, days, prices, noopNotifier{}, logger, time.UTC)
	resolver := availability.NewResolver(days, appts, time.UTC)

	public := NewPublicHandler(svc, resolver, proofstore.NewNoopStore(), logger)
	admin := NewAdminHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/public/appointments", public.Create)
	mux.HandleFunc("GET /api/v1/public/slots", public.Slots)
	mux.HandleFunc("GET /api/v1/public/booked", public.Booked)
	mux.HandleFunc("GET /api/v1/admin/appointments", admin.List)
	mux.HandleFunc("GET /api/v1/admin/appointments/{id}", admin.Get)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/validate", admin.Validate)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/reject", admin.Reject)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/complete", admin.Complete)
	mux.HandleFunc("POST /api/v1/admin/appointments/{id}/reschedule", admin.Reschedule)
	mux.HandleFunc("POST /api/v1/admin/unavailable-days", admin.Block)
	mux.HandleFunc("DELETE /api/v1/admin/unavailable-days/{date}", admin.Unblock)
	mux.HandleFunc("GET /api/v1/admin/unavailable-days", admin.ListBlocked)
	mux.HandleFunc("PUT /api/v1/admin/prices/{time}", admin.SetPrice)
	mux.HandleFunc("GET /api/v1/admin/prices", admin.ListPrices)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func createBooking(t *testing.T, mux *http.ServeMux, date, slotTime string) appointmentResponse {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/public/appointments", map[string]string{
		"name":  "Brice Tchoum",
		"email": "brice@example.cm",
		"phone": "+237670000001",
		"date":  date,
		"time":  slotTime,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[appointmentResponse](t, rec)
}

func TestCreateAppointmentJSON(t *testing.T) {
	mux := newTestMux(t)

	appt := createBooking(t, mux, futureDate, "09:00")
	if appt.AppointmentID == "" {
		t.Error("expected an appointment id")
	}
	if appt.Status != "pending" {
		t.Errorf("status = %q, want pending", appt.Status)
	}
	if appt.Time != "09:00" {
		t.Errorf("time = %q, want 09:00", appt.Time)
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	mux := newTestMux(t)

	createBooking(t, mux, futureDate, "09:00")
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/public/appointments", map[string]string{
		"name":  "Second Caller",
		"email": "second@example.cm",
		"phone": "+237670000002",
		"date":  futureDate,
		"time":  "09:00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateAppointmentValidationStatus(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/public/appointments", map[string]string{
		"name":  "No Email",
		"email": "",
		"phone": "+237670000003",
		"date":  futureDate,
		"time":  "09:00",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCreateAppointmentBadJSON(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/appointments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAppointmentMultipartWithProof(t *testing.T) {
	mux := newTestMux(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"name": "Brice Tchoum", "email": "brice@example.cm", "phone": "+237670000001",
		"date": futureDate, "time": "10:00",
	} {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("payment_proof", "receipt.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/appointments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestSlotsEndpoint(t *testing.T) {
	mux := newTestMux(t)

	createBooking(t, mux, futureDate, "09:00")

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/public/slots?date="+futureDate, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[slotsResponse](t, rec)
	if len(resp.Times) != len(slot.Grid)-1 {
		t.Fatalf("times = %v, want grid minus the taken hour", resp.Times)
	}
	for _, got := range resp.Times {
		if got == "09:00" {
			t.Errorf("taken hour still listed: %v", resp.Times)
		}
	}

	if rec := doJSON(t, mux, http.MethodGet, "/api/v1/public/slots", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodGet, "/api/v1/public/slots?date=junk", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date: status = %d, want 422", rec.Code)
	}
}

func TestBookedEndpoint(t *testing.T) {
	mux := newTestMux(t)

	createBooking(t, mux, futureDate, "09:00")

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/public/booked", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decode[[]bookedSlotItem](t, rec)
	if len(items) != 1 {
		t.Fatalf("items = %v, want one booked slot", items)
	}
	if items[0].Date != futureDate || items[0].Time != "09:00" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if body := rec.Body.String(); strings.Contains(body, "brice@example.cm") {
		t.Error("booked listing leaks requester data")
	}
}

func TestAdminValidateFlow(t *testing.T) {
	mux := newTestMux(t)
	appt := createBooking(t, mux, futureDate, "09:00")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/appointments/"+appt.AppointmentID+"/validate", nil)
	req.Header.Set("X-Reviewer-Id", "reviewer-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: status = %d, body %s", rec.Code, rec.Body.String())
	}
	item := decode[adminAppointmentItem](t, rec)
	if item.Status != "validated" || item.ValidatedBy != "reviewer-1" {
		t.Errorf("item = %+v", item)
	}

	// Second validate hits the transition guard.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/admin/appointments/"+appt.AppointmentID+"/validate", nil)
	req2.Header.Set("X-Reviewer-Id", "reviewer-1")
	mux.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusConflict {
		t.Errorf("second validate: status = %d, want 409", rec2.Code)
	}

	// Missing reviewer header is a validation failure.
	rec3 := httptest.NewRecorder()
	mux.ServeHTTP(rec3, httptest.NewRequest(http.MethodPost, "/api/v1/admin/appointments/"+appt.AppointmentID+"/validate", nil))
	if rec3.Code != http.StatusUnprocessableEntity {
		t.Errorf("no reviewer: status = %d, want 422", rec3.Code)
	}
}

func TestAdminRejectAndComplete(t *testing.T) {
	mux := newTestMux(t)
	appt := createBooking(t, mux, futureDate, "09:00")

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/appointments/"+appt.AppointmentID+"/reject", map[string]string{"reason": "no proof"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: status = %d, body %s", rec.Code, rec.Body.String())
	}
	item := decode[adminAppointmentItem](t, rec)
	if item.Status != "rejected" || item.RejectionReason != "no proof" {
		t.Errorf("item = %+v", item)
	}

	// completed is reachable only through validated.
	second := createBooking(t, mux, futureDate, "10:00")
	if rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/appointments/"+second.AppointmentID+"/complete", nil); rec.Code != http.StatusConflict {
		t.Errorf("complete pending: status = %d, want 409", rec.Code)
	}

	vreq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/appointments/"+second.AppointmentID+"/validate", nil)
	vreq.Header.Set("X-Reviewer-Id", "reviewer-1")
	vrec := httptest.NewRecorder()
	mux.ServeHTTP(vrec, vreq)
	if vrec.Code != http.StatusOK {
		t.Fatalf("validate: status = %d", vrec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/appointments/"+second.AppointmentID+"/complete", nil); rec.Code != http.StatusOK {
		t.Errorf("complete validated: status = %d", rec.Code)
	}
}

func TestAdminReschedule(t *testing.T) {
	mux := newTestMux(t)
	appt := createBooking(t, mux, futureDate, "09:00")

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/appointments/"+appt.AppointmentID+"/reschedule", map[string]string{
		"date": otherFutureDate,
		"time": "15:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reschedule: status = %d, body %s", rec.Code, rec.Body.String())
	}
	item := decode[adminAppointmentItem](t, rec)
	if item.Date != otherFutureDate || item.Time != "15:00" {
		t.Errorf("item = %+v", item)
	}

	if rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/appointments/missing/reschedule", map[string]string{
		"date": otherFutureDate,
		"time": "16:00",
	}); rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status = %d, want 404", rec.Code)
	}
}

func TestAdminUnavailableDays(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/unavailable-days", map[string]string{
		"date":   futureDate,
		"reason": "public holiday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("block: status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, mux, http.MethodPost, "/api/v1/admin/unavailable-days", map[string]string{"date": futureDate}); rec.Code != http.StatusConflict {
		t.Errorf("double block: status = %d, want 409", rec.Code)
	}

	// Bookings on the blocked day are refused.
	if rec := doJSON(t, mux, http.MethodPost, "/api/v1/public/appointments", map[string]string{
		"name": "Brice Tchoum", "email": "brice@example.cm", "phone": "+237670000001",
		"date": futureDate, "time": "09:00",
	}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("booking on blocked day: status = %d, want 422", rec.Code)
	}

	list := doJSON(t, mux, http.MethodGet, "/api/v1/admin/unavailable-days", nil)
	items := decode[[]blockedDayItem](t, list)
	if len(items) != 1 || items[0].Date != futureDate {
		t.Errorf("items = %v", items)
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/api/v1/admin/unavailable-days/"+futureDate, nil); rec.Code != http.StatusNoContent {
		t.Errorf("unblock: status = %d, want 204", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/api/v1/admin/unavailable-days/"+futureDate, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second unblock: status = %d, want 404", rec.Code)
	}

	// The reason is optional; omitting it blocks the day with an empty reason.
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/admin/unavailable-days", map[string]string{"date": otherFutureDate})
	if rec.Code != http.StatusCreated {
		t.Fatalf("block without reason: status = %d, body %s", rec.Code, rec.Body.String())
	}
	items = decode[[]blockedDayItem](t, doJSON(t, mux, http.MethodGet, "/api/v1/admin/unavailable-days", nil))
	if len(items) != 1 || items[0].Date != otherFutureDate || items[0].Reason != "" {
		t.Errorf("items after reasonless block = %v", items)
	}
}

func TestAdminPrices(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPut, "/api/v1/admin/prices/09:00", map[string]any{"amount": 15000})
	if rec.Code != http.StatusOK {
		t.Fatalf("set price: status = %d, body %s", rec.Code, rec.Body.String())
	}
	p := decode[priceItem](t, rec)
	if p.Amount != 15000 || p.Currency != "FCFA" {
		t.Errorf("price = %+v", p)
	}

	if rec := doJSON(t, mux, http.MethodPut, "/api/v1/admin/prices/13:00", map[string]any{"amount": 15000}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("off-grid hour: status = %d, want 422", rec.Code)
	}

	// Bookings at the priced hour carry the snapshot.
	appt := createBooking(t, mux, futureDate, "09:00")
	if appt.Amount == nil || *appt.Amount != 15000 {
		t.Errorf("amount = %v, want 15000", appt.Amount)
	}

	list := doJSON(t, mux, http.MethodGet, "/api/v1/admin/prices", nil)
	items := decode[[]priceItem](t, list)
	if len(items) != 1 {
		t.Errorf("items = %v", items)
	}
}
