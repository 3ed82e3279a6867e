// Package services – slot availability probing
//
// The prober answers "could the customer simply book right now?". It is used
// as a join-time guard: when free slots already exist inside the requested
// window, the join is rejected with a SlotsAvailableError carrying those
// slots so the client can book directly instead of queueing pointlessly.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
)

// ProbeAvailability returns the currently free slots for salonID on date
// whose start time falls inside [windowStart, windowEnd], optionally filtered
// to one staff member. The window bounds are "HH:MM" strings; date is
// "YYYY-MM-DD".
func ProbeAvailability(ctx context.Context, db *gorm.DB, salonID, date, windowStart, windowEnd string, staffID *string) ([]domain.TimeSlot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	startMin, err := ParseClock(windowStart)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(windowEnd)
	if err != nil {
		return nil, err
	}

	from := day.Add(time.Duration(startMin) * time.Minute)
	to := day.Add(time.Duration(endMin) * time.Minute)
	return repo.ListFreeSlotsBetween(ctx, db, salonID, from, to, staffID)
}
