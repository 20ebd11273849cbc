package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/model"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// AppointmentRepository persists appointments in Postgres. The
// no-double-booking invariant lives in the schema: a partial unique index on
// (slot_date, slot_time) WHERE status IN ('pending','validated') makes the
// insert (and the reschedule update) the serialization point, so there is no
// check-then-insert window. Unique violations surface as booking.ErrSlotTaken.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `
	id, name, email, phone, COALESCE(message, ''),
	slot_date, to_char(slot_time, 'HH24:MI'), status,
	amount, currency, COALESCE(payment_proof, ''),
	COALESCE(rejection_reason, ''), COALESCE(validated_by, ''), validated_at, created_at`

func (r *AppointmentRepository) Reserve(ctx context.Context, appt *model.Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments
			(id, name, email, phone, message, slot_date, slot_time, status, amount, currency, payment_proof, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, appt.ID, appt.Name, appt.Email, appt.Phone, appt.Message,
		appt.SlotDate, appt.SlotTime, appt.Status, appt.Amount, appt.Currency,
		nullIfEmpty(appt.PaymentProof), appt.CreatedAt)
	if isUniqueViolation(err) {
		return booking.ErrSlotTaken
	}
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (r *AppointmentRepository) Validate(ctx context.Context, id, reviewerID string, at time.Time) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, validated_by = $3, validated_at = $4
		WHERE id = $1 AND status = ANY($5)
		RETURNING `+appointmentColumns,
		id, model.StatusValidated, reviewerID, at, allowedFrom(model.ActionValidate))
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, r.transitionError(ctx, id)
	}
	return appt, err
}

func (r *AppointmentRepository) Reject(ctx context.Context, id, reason string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, rejection_reason = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING `+appointmentColumns,
		id, model.StatusRejected, reason, allowedFrom(model.ActionReject))
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, r.transitionError(ctx, id)
	}
	return appt, err
}

func (r *AppointmentRepository) Complete(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+appointmentColumns,
		id, model.StatusCompleted, allowedFrom(model.ActionComplete))
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, r.transitionError(ctx, id)
	}
	return appt, err
}

func (r *AppointmentRepository) Move(ctx context.Context, id string, date time.Time, slotTime string, amount *float64, currency string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET slot_date = $2, slot_time = $3, amount = $4, currency = $5
		WHERE id = $1 AND status = ANY($6)
		RETURNING `+appointmentColumns,
		id, date, slotTime, amount, currency,
		allowedFrom(model.ActionReschedule))
	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if isUniqueViolation(err) {
		return model.Appointment{}, booking.ErrSlotTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, r.transitionError(ctx, id)
	}
	return model.Appointment{}, err
}

func (r *AppointmentRepository) ActiveSlotExists(ctx context.Context, date time.Time, slotTime string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE slot_date = $1 AND slot_time = $2 AND status = ANY($3)
		)
	`, date, slotTime, activeStatuses()).Scan(&exists)
	return exists, err
}

func (r *AppointmentRepository) ListActiveSlots(ctx context.Context) ([]slot.Booked, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_date, to_char(slot_time, 'HH24:MI')
		FROM appointments
		WHERE status = ANY($1)
		ORDER BY slot_date, slot_time
	`, activeStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var booked []slot.Booked
	for rows.Next() {
		var b slot.Booked
		if err := rows.Scan(&b.Date, &b.Time); err != nil {
			return nil, err
		}
		booked = append(booked, b)
	}
	return booked, rows.Err()
}

func (r *AppointmentRepository) List(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// transitionError disambiguates a zero-row conditional update: the row either
// does not exist or is in a state the action does not permit.
func (r *AppointmentRepository) transitionError(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return booking.ErrInvalidTransition
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var validatedAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&appt.Message,
		&appt.SlotDate,
		&appt.SlotTime,
		&appt.Status,
		&appt.Amount,
		&appt.Currency,
		&appt.PaymentProof,
		&appt.RejectionReason,
		&appt.ValidatedBy,
		&validatedAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if !appt.Status.Valid() {
		return model.Appointment{}, fmt.Errorf("appointment %s: unknown status %q", appt.ID, appt.Status)
	}
	appt.ValidatedAt = validatedAt
	return appt, nil
}

func activeStatuses() []string {
	return []string{string(model.StatusPending), string(model.StatusValidated)}
}

// allowedFrom renders the transition table's guard set for an action as the
// text array the status = ANY(...) conditions bind.
func allowedFrom(a model.Action) []string {
	allowed := model.AllowedFrom(a)
	out := make([]string, len(allowed))
	for i, s := range allowed {
		out[i] = string(s)
	}
	return out
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
