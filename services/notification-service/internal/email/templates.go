// Package email renders and sends the French booking lifecycle mails.
package email

import (
	"fmt"
	"strings"
)

// Booking event types, mirroring the topics this service consumes.
const (
	EventRequested   = "booking.appointment.requested.v1"
	EventValidated   = "booking.appointment.validated.v1"
	EventRejected    = "booking.appointment.rejected.v1"
	EventRescheduled = "booking.appointment.rescheduled.v1"
)

// BookingEvent is the consumed payload shape.
type BookingEvent struct {
	AppointmentID   string   `json:"appointment_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	SlotDate        string   `json:"slot_date"`
	SlotTime        string   `json:"slot_time"`
	Status          string   `json:"status"`
	Amount          *float64 `json:"amount,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	ValidatedAt     string   `json:"validated_at,omitempty"`
}

// Compose renders the subject and plain-text body for a lifecycle event.
// Clients are francophone, so every template is French.
func Compose(eventType string, evt BookingEvent) (subject, body string, err error) {
	name := strings.TrimSpace(evt.Name)
	if name == "" {
		name = "Madame, Monsieur"
	}
	when := fmt.Sprintf("le %s à %s", evt.SlotDate, evt.SlotTime)

	switch eventType {
	case EventRequested:
		subject = "Votre demande de rendez-vous a bien été reçue"
		var price string
		if evt.Amount != nil {
			price = fmt.Sprintf("\n\nMontant de la consultation : %s.", formatAmount(*evt.Amount, evt.Currency))
		}
		body = fmt.Sprintf(
			"Bonjour %s,\n\nNous avons bien reçu votre demande de rendez-vous pour une consultation juridique %s.\n\nVotre demande est en cours d'examen. Vous recevrez une confirmation dès que notre équipe aura vérifié votre justificatif de paiement.%s\n\nCordialement,\nL'équipe ConsultRDV",
			name, when, price,
		)
	case EventValidated:
		subject = "Votre rendez-vous est confirmé"
		body = fmt.Sprintf(
			"Bonjour %s,\n\nVotre rendez-vous de consultation juridique est confirmé %s.\n\nMerci de vous présenter quelques minutes en avance, muni de vos documents.\n\nCordialement,\nL'équipe ConsultRDV",
			name, when,
		)
	case EventRejected:
		subject = "Votre demande de rendez-vous n'a pas pu être confirmée"
		var reason string
		if r := strings.TrimSpace(evt.RejectionReason); r != "" {
			reason = fmt.Sprintf("\n\nMotif : %s.", r)
		}
		body = fmt.Sprintf(
			"Bonjour %s,\n\nNous sommes au regret de vous informer que votre demande de rendez-vous prévue %s n'a pas pu être confirmée.%s\n\nLe créneau est de nouveau disponible ; vous pouvez soumettre une nouvelle demande à tout moment.\n\nCordialement,\nL'équipe ConsultRDV",
			name, when, reason,
		)
	case EventRescheduled:
		subject = "Votre rendez-vous a été déplacé"
		body = fmt.Sprintf(
			"Bonjour %s,\n\nVotre rendez-vous de consultation juridique a été déplacé. Nouvelle date : %s.\n\nSi ce créneau ne vous convient pas, merci de nous contacter au plus vite.\n\nCordialement,\nL'équipe ConsultRDV",
			name, when,
		)
	default:
		return "", "", fmt.Errorf("no template for event type %q", eventType)
	}
	return subject, body, nil
}

func formatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "FCFA"
	}
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d %s", int64(amount), currency)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
