package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fkamdem/consultrdv/libs/db"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/booking"
	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// Notifier implements booking.Notifier by writing an outbox row in its own
// short transaction. The write happens after the state change has committed,
// so a full outbox (or a down database) can lose a notification but can never
// roll back a transition.
type Notifier struct {
	pool *db.Pool
	repo *Repository
}

func NewNotifier(pool *db.Pool, repo *Repository) *Notifier {
	return &Notifier{pool: pool, repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, evt booking.Event) error {
	appt := evt.Appointment
	body := map[string]any{
		"appointment_id": appt.ID,
		"name":           appt.Name,
		"email":          appt.Email,
		"slot_date":      appt.SlotDate.Format(slot.DateLayout),
		"slot_time":      appt.SlotTime,
		"status":         string(appt.Status),
		"currency":       appt.Currency,
	}
	if appt.Amount != nil {
		body["amount"] = *appt.Amount
	}
	if appt.RejectionReason != "" {
		body["rejection_reason"] = appt.RejectionReason
	}
	if appt.ValidatedAt != nil {
		body["validated_at"] = appt.ValidatedAt.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	tx, err := n.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := n.repo.Insert(ctx, tx, Event{
		EventID:       uuid.NewString(),
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     evt.Type,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
