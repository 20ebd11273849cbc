package model

import "time"

// Status is the closed set of appointment lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Action is an operation that may move an appointment between states.
type Action string

const (
	ActionValidate   Action = "validate"
	ActionReject     Action = "reject"
	ActionComplete   Action = "complete"
	ActionReschedule Action = "reschedule"
)

// transitions encodes which action is legal from which state and the state it
// leads to. Reschedule preserves the current state; it is listed so its guard
// goes through the same table.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionValidate:   StatusValidated,
		ActionReject:     StatusRejected,
		ActionReschedule: StatusPending,
	},
	StatusValidated: {
		ActionComplete:   StatusCompleted,
		ActionReschedule: StatusValidated,
	},
}

// Next returns the state that action leads to from s, and whether the
// transition is legal at all.
func Next(s Status, a Action) (Status, bool) {
	next, ok := transitions[s][a]
	return next, ok
}

// AllowedFrom returns, in lifecycle order, the statuses from which action is
// legal. Storage guards derive their WHERE conditions from this so the
// transition table stays the single source of truth.
func AllowedFrom(a Action) []Status {
	var out []Status
	for _, s := range []Status{StatusPending, StatusValidated, StatusRejected, StatusCompleted} {
		if _, ok := transitions[s][a]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Active reports whether the appointment holds its slot. Rejected and
// completed appointments do not.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusValidated
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Appointment is a legal-consultation booking on the fixed slot grid.
// Records are never hard-deleted; rejected and completed rows stay for audit
// but release their slot.
type Appointment struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Message         string
	SlotDate        time.Time // calendar date, midnight UTC
	SlotTime        string    // HH:MM, member of slot.Grid
	Status          Status
	Amount          *float64 // price snapshot at creation/reschedule; nil when no price configured
	Currency        string
	PaymentProof    string // opaque file-storage reference, may be empty
	RejectionReason string
	ValidatedBy     string
	ValidatedAt     *time.Time
	CreatedAt       time.Time
}

// UnavailableDay is a date on which no slot may be booked.
type UnavailableDay struct {
	Day       time.Time
	Reason    string
	CreatedAt time.Time
}

// SlotPrice is the configured price for one grid hour.
type SlotPrice struct {
	SlotTime  string
	Amount    float64
	Currency  string
	UpdatedAt time.Time
}

// DefaultCurrency applies when an upsert leaves the currency blank.
const DefaultCurrency = "FCFA"
