// Package booking implements the appointment scheduling core: conflict-safe
// reservation, the appointment state machine, rescheduling, the slot price
// directory and the unavailable-day registry.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// AppointmentStore is the persistence contract for appointments. Every method
// that mutates state is atomic with respect to concurrent callers: Reserve
// and Move rely on a storage-level uniqueness guarantee over active
// (date, time) pairs, and the transition methods are conditional on the
// current status.
type AppointmentStore interface {
	// Reserve inserts a new pending appointment. Returns ErrSlotTaken when
	// another active appointment holds (SlotDate, SlotTime).
	Reserve(ctx context.Context, appt *model.Appointment) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	// Validate moves id from pending to validated, stamping the reviewer.
	Validate(ctx context.Context, id, reviewerID string, at time.Time) (model.Appointment, error)
	// Reject moves id from pending to rejected, storing the reason.
	Reject(ctx context.Context, id, reason string) (model.Appointment, error)
	// Complete moves id from validated to completed.
	Complete(ctx context.Context, id string) (model.Appointment, error)
	// Move re-targets an active appointment to a new slot in place, keeping
	// identity and status. Returns ErrSlotTaken when a different active
	// appointment holds the new slot.
	Move(ctx context.Context, id string, date time.Time, slotTime string, amount *float64, currency string) (model.Appointment, error)
	ActiveSlotExists(ctx context.Context, date time.Time, slotTime string) (bool, error)
	ListActiveSlots(ctx context.Context) ([]slot.Booked, error)
	List(ctx context.Context, limit int) ([]model.Appointment, error)
}

// UnavailableDayStore is the registry of dates on which no slot may be booked.
type UnavailableDayStore interface {
	Block(ctx context.Context, day model.UnavailableDay) error // ErrAlreadyBlocked when present
	Unblock(ctx context.Context, date time.Time) error         // ErrNotFound when absent
	IsBlocked(ctx context.Context, date time.Time) (bool, error)
	List(ctx context.Context) ([]model.UnavailableDay, error)
}

// SlotPriceStore is the per-grid-hour pricing table.
type SlotPriceStore interface {
	Get(ctx context.Context, slotTime string) (model.SlotPrice, bool, error)
	Upsert(ctx context.Context, p model.SlotPrice) error
	List(ctx context.Context) ([]model.SlotPrice, error)
}

// Event is a status-change notification handed to the dispatch collaborator.
type Event struct {
	Type        string
	Appointment model.Appointment
}

// Event types, one Kafka topic each.
const (
	EventRequested   = "booking.appointment.requested.v1"
	EventValidated   = "booking.appointment.validated.v1"
	EventRejected    = "booking.appointment.rejected.v1"
	EventRescheduled = "booking.appointment.rescheduled.v1"
)

// Notifier dispatches events fire-and-forget. The service logs a failed
// dispatch and moves on; delivery problems never fail a state change.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

type Service struct {
	appts    AppointmentStore
	days     UnavailableDayStore
	prices   SlotPriceStore
	notifier Notifier
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(appts AppointmentStore, days UnavailableDayStore, prices SlotPriceStore, notifier Notifier, logger *slog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appts:    appts,
		days:     days,
		prices:   prices,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// ReserveRequest is a public booking submission.
type ReserveRequest struct {
	Name         string
	Email        string
	Phone        string
	Message      string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM or HH:MM:SS
	PaymentProof string // opaque file-storage reference, may be empty
}

// Reserve validates the submission, snapshots the slot price and creates a
// pending appointment. The slot-uniqueness check and the insert are a single
// atomic unit in the store, so two near-simultaneous submissions for the same
// slot cannot both succeed; the loser gets ErrSlotTaken.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (model.Appointment, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || email == "" || phone == "" {
		return model.Appointment{}, fmt.Errorf("%w: name, email and phone are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: malformed email %q", ErrValidation, email)
	}

	date, slotTime, err := s.parseSlot(req.Date, req.Time)
	if err != nil {
		return model.Appointment{}, err
	}

	blocked, err := s.days.IsBlocked(ctx, date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("check unavailable day: %w", err)
	}
	if blocked {
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrDateUnavailable, date.Format(slot.DateLayout))
	}

	amount, currency, err := s.snapshotPrice(ctx, slotTime)
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		Message:      strings.TrimSpace(req.Message),
		SlotDate:     date,
		SlotTime:     slotTime,
		Status:       model.StatusPending,
		Amount:       amount,
		Currency:     currency,
		PaymentProof: strings.TrimSpace(req.PaymentProof),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.appts.Reserve(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}

	s.notify(ctx, EventRequested, appt)
	return appt, nil
}

// Validate moves a pending appointment to validated, stamping the reviewer
// and the validation time.
func (s *Service) Validate(ctx context.Context, id, reviewerID string) (model.Appointment, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return model.Appointment{}, fmt.Errorf("%w: reviewer id is required", ErrValidation)
	}
	appt, err := s.appts.Validate(ctx, id, reviewerID, s.now().UTC())
	if err != nil {
		return model.Appointment{}, err
	}
	s.notify(ctx, EventValidated, appt)
	return appt, nil
}

// Reject moves a pending appointment to rejected, releasing its slot.
// The reason may be empty.
func (s *Service) Reject(ctx context.Context, id, reason string) (model.Appointment, error) {
	appt, err := s.appts.Reject(ctx, id, strings.TrimSpace(reason))
	if err != nil {
		return model.Appointment{}, err
	}
	s.notify(ctx, EventRejected, appt)
	return appt, nil
}

// Complete marks a validated appointment as completed. This is a manual
// administrative action; nothing completes appointments automatically.
func (s *Service) Complete(ctx context.Context, id string) (model.Appointment, error) {
	return s.appts.Complete(ctx, id)
}

// Reschedule re-targets an active appointment to a new slot in place.
// Identity and status are preserved; the conflict check excludes the
// appointment itself, so rescheduling onto its own slot is a no-op success.
// The amount is re-snapshotted from the price directory for the new time.
func (s *Service) Reschedule(ctx context.Context, id, rawDate, rawTime string) (model.Appointment, error) {
	date, slotTime, err := s.parseSlot(rawDate, rawTime)
	if err != nil {
		return model.Appointment{}, err
	}

	blocked, err := s.days.IsBlocked(ctx, date)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("check unavailable day: %w", err)
	}
	if blocked {
		return model.Appointment{}, fmt.Errorf("%w: %s", ErrDateUnavailable, date.Format(slot.DateLayout))
	}

	amount, currency, err := s.snapshotPrice(ctx, slotTime)
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err := s.appts.Move(ctx, id, date, slotTime, amount, currency)
	if err != nil {
		return model.Appointment{}, err
	}
	s.notify(ctx, EventRescheduled, appt)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.appts.Get(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit int) ([]model.Appointment, error) {
	return s.appts.List(ctx, limit)
}

// Block adds a date to the unavailable-day registry.
func (s *Service) Block(ctx context.Context, rawDate, reason string) (model.UnavailableDay, error) {
	date, err := slot.ParseDate(rawDate)
	if err != nil {
		return model.UnavailableDay{}, fmt.Errorf("%w: malformed date %q", ErrValidation, rawDate)
	}
	day := model.UnavailableDay{
		Day:       date,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.now().UTC(),
	}
	if err := s.days.Block(ctx, day); err != nil {
		return model.UnavailableDay{}, err
	}
	return day, nil
}

func (s *Service) Unblock(ctx context.Context, rawDate string) error {
	date, err := slot.ParseDate(rawDate)
	if err != nil {
		return fmt.Errorf("%w: malformed date %q", ErrValidation, rawDate)
	}
	return s.days.Unblock(ctx, date)
}

func (s *Service) ListBlocked(ctx context.Context) ([]model.UnavailableDay, error) {
	return s.days.List(ctx)
}

// SetPrice upserts the price for one grid hour. A blank currency falls back
// to the default.
func (s *Service) SetPrice(ctx context.Context, rawTime string, amount float64, currency string) (model.SlotPrice, error) {
	slotTime, err := slot.Normalize(rawTime)
	if err != nil {
		return model.SlotPrice{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !slot.InGrid(slotTime) {
		return model.SlotPrice{}, fmt.Errorf("%w: %s is not a bookable hour", ErrValidation, slotTime)
	}
	if amount < 0 {
		return model.SlotPrice{}, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = model.DefaultCurrency
	}
	p := model.SlotPrice{
		SlotTime:  slotTime,
		Amount:    amount,
		Currency:  currency,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.prices.Upsert(ctx, p); err != nil {
		return model.SlotPrice{}, err
	}
	return p, nil
}

func (s *Service) GetPrice(ctx context.Context, rawTime string) (model.SlotPrice, bool, error) {
	slotTime, err := slot.Normalize(rawTime)
	if err != nil {
		return model.SlotPrice{}, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.prices.Get(ctx, slotTime)
}

func (s *Service) ListPrices(ctx context.Context) ([]model.SlotPrice, error) {
	return s.prices.List(ctx)
}

// parseSlot validates a raw (date, time) pair against the grid and the
// today-or-later policy.
func (s *Service) parseSlot(rawDate, rawTime string) (time.Time, string, error) {
	date, err := slot.ParseDate(rawDate)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: malformed date %q", ErrValidation, rawDate)
	}
	slotTime, err := slot.Normalize(rawTime)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !slot.InGrid(slotTime) {
		return time.Time{}, "", fmt.Errorf("%w: %s is not a bookable hour", ErrValidation, slotTime)
	}
	today := slot.DateOnly(s.now(), s.loc)
	if date.Before(today) {
		return time.Time{}, "", fmt.Errorf("%w: date %s is in the past", ErrValidation, rawDate)
	}
	return date, slotTime, nil
}

func (s *Service) snapshotPrice(ctx context.Context, slotTime string) (*float64, string, error) {
	price, ok, err := s.prices.Get(ctx, slotTime)
	if err != nil {
		return nil, "", fmt.Errorf("look up slot price: %w", err)
	}
	if !ok {
		return nil, model.DefaultCurrency, nil
	}
	amount := price.Amount
	return &amount, price.Currency, nil
}

func (s *Service) notify(ctx context.Context, eventType string, appt model.Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, Event{Type: eventType, Appointment: appt}); err != nil {
		s.logger.Error("notification dispatch failed", "err", err, "event", eventType, "appointment_id", appt.ID)
	}
}
