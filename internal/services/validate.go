// Package services – validation helpers
//
// This file implements the pure validation pieces of the join protocol: time
// window parsing and width checks, entity existence checks, and the canonical
// slot-compatibility predicate shared by queue position display and matching.
// Keeping the predicate in one place means the two call sites cannot drift
// apart in how they decide "does this slot fit this entry".
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
)

// DateLayout is the wire and storage format for requested dates.
const DateLayout = "2006-01-02"

// ClockLayout is the wire and storage format for time-of-day bounds.
const ClockLayout = "15:04"

// ParseClock parses an "HH:MM" string into minutes since midnight. Returns
// ErrInvalidWindow for malformed input.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidWindow, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NormalizeClock re-formats an "HH:MM" string into its canonical zero-padded
// form. time.Parse accepts unpadded hours ("9:00"), but window bounds are
// compared lexically against slot clocks both in SQL and in IsCompatible, so
// anything stored must be zero-padded or it silently never matches.
func NormalizeClock(s string) (string, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: bad time %q", ErrInvalidWindow, s)
	}
	return t.Format(ClockLayout), nil
}

// ValidateWindow checks that end is strictly after start and the window is at
// least minWidth wide. A 30-minute minimum accepts exactly 30 minutes and
// rejects 29.
func ValidateWindow(start, end string, minWidth time.Duration) error {
	s, err := ParseClock(start)
	if err != nil {
		return err
	}
	e, err := ParseClock(end)
	if err != nil {
		return err
	}
	if e <= s {
		return fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	if time.Duration(e-s)*time.Minute < minWidth {
		return fmt.Errorf("%w: window must be at least %s", ErrInvalidWindow, minWidth)
	}
	return nil
}

// ParseDate parses a "YYYY-MM-DD" date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// SlotClock returns a slot's zero-padded "HH:MM" time of day in UTC.
func SlotClock(s *domain.TimeSlot) string {
	return s.StartTime.UTC().Format(ClockLayout)
}

// SlotDate returns a slot's "YYYY-MM-DD" calendar date in UTC.
func SlotDate(s *domain.TimeSlot) string {
	return s.StartTime.UTC().Format(DateLayout)
}

// ValidateEntities confirms that a join request references an active salon, a
// service sold by that salon, and (when given) a staff member employed there.
// Pure read-only checks; the returned rows are reused by the caller.
func ValidateEntities(ctx context.Context, db *gorm.DB, salonID, serviceID string, staffID *string) (*domain.Salon, *domain.Service, *domain.Staff, error) {
	salon, err := repo.GetSalon(ctx, db, salonID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, nil, ErrSalonNotFound
		}
		return nil, nil, nil, err
	}
	if !salon.IsActive {
		return nil, nil, nil, ErrSalonNotFound
	}

	svc, err := repo.GetServiceForSalon(ctx, db, serviceID, salonID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, nil, ErrServiceNotFound
		}
		return nil, nil, nil, err
	}

	var staff *domain.Staff
	if staffID != nil {
		staff, err = repo.GetStaffForSalon(ctx, db, *staffID, salonID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, nil, nil, ErrStaffNotFound
			}
			return nil, nil, nil, err
		}
		if !staff.IsActive {
			return nil, nil, nil, ErrStaffNotFound
		}
	}

	return salon, svc, staff, nil
}

// IsCompatible is the canonical predicate deciding whether a free slot can be
// offered to a waiting entry. All three rules must hold:
//
//   - the slot's time of day falls inside the entry's window (inclusive bounds);
//   - the slot's date is within the entry's flexibility distance of the
//     requested date;
//   - the entry either accepts any staff member or names the slot's staff.
//
// It operates purely on its arguments so it can be unit-tested in isolation
// and applied to query results in memory.
func IsCompatible(e *domain.WaitlistEntry, s *domain.TimeSlot) bool {
	clock := SlotClock(s)
	if clock < e.WindowStart || clock > e.WindowEnd {
		return false
	}

	reqDay, err := ParseDate(e.RequestedDate)
	if err != nil {
		return false
	}
	slotDay, err := ParseDate(SlotDate(s))
	if err != nil {
		return false
	}
	days := int(slotDay.Sub(reqDay).Hours() / 24)
	if days < 0 {
		days = -days
	}
	if days > e.FlexibilityDays {
		return false
	}

	if e.StaffID != nil && *e.StaffID != s.StaffID {
		return false
	}
	return true
}
