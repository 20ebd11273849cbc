// Package availability answers "which slots can be booked" without mutating
// anything.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/fkamdem/consultrdv/services/booking-service/internal/slot"
)

// DayRegistry is the read side of the unavailable-day registry.
type DayRegistry interface {
	IsBlocked(ctx context.Context, date time.Time) (bool, error)
}

// AppointmentIndex is the read side of the appointment table: which slots are
// held by active (pending or validated) appointments.
type AppointmentIndex interface {
	ActiveSlotExists(ctx context.Context, date time.Time, slotTime string) (bool, error)
	ListActiveSlots(ctx context.Context) ([]slot.Booked, error)
}

type Resolver struct {
	days  DayRegistry
	appts AppointmentIndex
	loc   *time.Location
	now   func() time.Time
}

func NewResolver(days DayRegistry, appts AppointmentIndex, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{days: days, appts: appts, loc: loc, now: time.Now}
}

// IsBookable reports whether (date, rawTime) can accept a booking: the time is
// on the fixed grid, the date is today or later and not blocked, and no
// active appointment holds the slot.
func (r *Resolver) IsBookable(ctx context.Context, date time.Time, rawTime string) (bool, error) {
	slotTime, err := slot.Normalize(rawTime)
	if err != nil {
		return false, nil
	}
	if !slot.InGrid(slotTime) {
		return false, nil
	}
	if date.Before(slot.DateOnly(r.now(), r.loc)) {
		return false, nil
	}

	blocked, err := r.days.IsBlocked(ctx, date)
	if err != nil {
		return false, fmt.Errorf("check unavailable day: %w", err)
	}
	if blocked {
		return false, nil
	}

	taken, err := r.appts.ActiveSlotExists(ctx, date, slotTime)
	if err != nil {
		return false, fmt.Errorf("check active slot: %w", err)
	}
	return !taken, nil
}

// BookableTimes returns the grid hours still open on date, in grid order.
// A blocked or past date has none.
func (r *Resolver) BookableTimes(ctx context.Context, date time.Time) ([]string, error) {
	if date.Before(slot.DateOnly(r.now(), r.loc)) {
		return nil, nil
	}
	blocked, err := r.days.IsBlocked(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("check unavailable day: %w", err)
	}
	if blocked {
		return nil, nil
	}

	var times []string
	for _, g := range slot.Grid {
		taken, err := r.appts.ActiveSlotExists(ctx, date, g)
		if err != nil {
			return nil, fmt.Errorf("check active slot: %w", err)
		}
		if !taken {
			times = append(times, g)
		}
	}
	return times, nil
}

// ListBooked returns the (date, time) pairs held by active appointments.
// Times come back as HH:MM so calendar UIs can render occupancy without any
// personal data.
func (r *Resolver) ListBooked(ctx context.Context) ([]slot.Booked, error) {
	return r.appts.ListActiveSlots(ctx)
}
