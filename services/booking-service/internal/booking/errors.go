package booking

import "errors"

var (
	// ErrValidation covers malformed input: bad date/time format, a time
	// outside the fixed grid, a past date, missing requester fields.
	ErrValidation = errors.New("invalid input")

	// ErrDateUnavailable means the requested date is in the unavailable-day
	// registry.
	ErrDateUnavailable = errors.New("date is unavailable")

	// ErrSlotTaken means another active appointment already holds the slot.
	// It is the expected outcome of a lost reservation race, so callers can
	// offer "pick another slot" instead of a generic failure.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrInvalidTransition means the appointment's current status does not
	// permit the requested action.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNotFound = errors.New("not found")

	// ErrAlreadyBlocked is the idempotency guard on blocking a day twice.
	ErrAlreadyBlocked = errors.New("date already blocked")
)
