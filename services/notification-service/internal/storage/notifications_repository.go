package storage

import (
	"context"

	"github.com/fkamdem/consultrdv/libs/db"
)

// Notification is one delivery attempt, kept for support queries
// ("did the client get the confirmation mail?").
type Notification struct {
	AppointmentID string
	EventType     string
	Recipient     string
	Subject       string
	Status        string
	ErrorReason   string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, event_type, recipient, subject, status, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.AppointmentID, n.EventType, n.Recipient, n.Subject, n.Status, n.ErrorReason)
	return err
}
