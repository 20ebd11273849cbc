package email

import (
	"strings"
	"testing"
)

func TestComposePerEventType(t *testing.T) {
	amount := 15000.0
	evt := BookingEvent{
		AppointmentID: "a1",
		Name:          "Brice Tchoum",
		Email:         "brice@example.cm",
		SlotDate:      "2026-03-10",
		SlotTime:      "09:00",
		Amount:        &amount,
		Currency:      "FCFA",
	}

	cases := []struct {
		eventType string
		wantSubj  string
		wantBody  []string
	}{
		{
			eventType: EventRequested,
			wantSubj:  "reçue",
			wantBody:  []string{"Brice Tchoum", "2026-03-10", "09:00", "15000 FCFA", "justificatif de paiement"},
		},
		{
			eventType: EventValidated,
			wantSubj:  "confirmé",
			wantBody:  []string{"Brice Tchoum", "2026-03-10", "09:00"},
		},
		{
			eventType: EventRescheduled,
			wantSubj:  "déplacé",
			wantBody:  []string{"Nouvelle date", "2026-03-10", "09:00"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			subject, body, err := Compose(tc.eventType, evt)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if !strings.Contains(subject, tc.wantSubj) {
				t.Errorf("subject = %q, want it to mention %q", subject, tc.wantSubj)
			}
			for _, fragment := range tc.wantBody {
				if !strings.Contains(body, fragment) {
					t.Errorf("body missing %q:\n%s", fragment, body)
				}
			}
		})
	}
}

func TestComposeRejectedWithReason(t *testing.T) {
	evt := BookingEvent{
		Name:            "Brice Tchoum",
		SlotDate:        "2026-03-10",
		SlotTime:        "09:00",
		RejectionReason: "justificatif illisible",
	}
	_, body, err := Compose(EventRejected, evt)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(body, "Motif : justificatif illisible.") {
		t.Errorf("body missing reason:\n%s", body)
	}

	evt.RejectionReason = ""
	_, body, err = Compose(EventRejected, evt)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(body, "Motif") {
		t.Errorf("body should omit the reason line when empty:\n%s", body)
	}
}

func TestComposeFallbacks(t *testing.T) {
	_, body, err := Compose(EventValidated, BookingEvent{SlotDate: "2026-03-10", SlotTime: "09:00"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(body, "Madame, Monsieur") {
		t.Errorf("body missing neutral greeting:\n%s", body)
	}

	if _, _, err := Compose("billing.invoice.paid.v1", BookingEvent{}); err == nil {
		t.Error("expected an error for an unknown event type")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := formatAmount(15000, "FCFA"); got != "15000 FCFA" {
		t.Errorf("formatAmount = %q", got)
	}
	if got := formatAmount(99.5, "EUR"); got != "99.50 EUR" {
		t.Errorf("formatAmount = %q", got)
	}
	if got := formatAmount(5000, ""); got != "5000 FCFA" {
		t.Errorf("formatAmount = %q", got)
	}
}
