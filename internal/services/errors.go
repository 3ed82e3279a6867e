// Package services defines the business logic of the waitlist engine: joining
// and leaving the queue, matching freed slots against waiting entries,
// notifying candidates, and converting accepted offers into bookings.
//
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers. Translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// Validation errors.
var (
	// ErrPastDate is returned when a join request targets a date in the past.
	ErrPastDate = errors.New("requested date is in the past")

	// ErrInvalidWindow is returned when a time window is malformed, reversed,
	// or narrower than the configured minimum.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrInvalidResponse is returned when an offer response is neither
	// "accepted" nor "declined".
	ErrInvalidResponse = errors.New("response must be accepted or declined")
)

// Lookup errors.
var (
	// ErrSalonNotFound indicates the salon does not exist or is inactive.
	ErrSalonNotFound = errors.New("salon not found")

	// ErrServiceNotFound indicates the service does not exist or is not sold
	// by the given salon.
	ErrServiceNotFound = errors.New("service not found")

	// ErrStaffNotFound indicates the staff member does not exist or is not
	// employed at the given salon.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrCustomerNotFound indicates the customer record is missing.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrEntryNotFound indicates the waitlist entry does not exist.
	ErrEntryNotFound = errors.New("waitlist entry not found")

	// ErrSlotNotFound indicates the offered slot no longer exists.
	ErrSlotNotFound = errors.New("slot not found")
)

// Conflict and state errors.
var (
	// ErrDuplicateEntry is returned when the customer already holds a live
	// entry for the same (salon, service, date) tuple.
	ErrDuplicateEntry = errors.New("an active waitlist entry already exists for this request")

	// ErrTooManyEntries is returned when the customer is at the per-date cap
	// of live entries.
	ErrTooManyEntries = errors.New("too many active waitlist entries for this date")

	// ErrNotEntryOwner is returned when acting on another customer's entry.
	ErrNotEntryOwner = errors.New("entry belongs to another customer")

	// ErrNotSalonOwner is returned when requesting salon analytics without
	// owning the salon.
	ErrNotSalonOwner = errors.New("not the salon owner")

	// ErrEntryNotNotified is returned when responding to an entry that holds
	// no outstanding offer.
	ErrEntryNotNotified = errors.New("entry has no pending offer")

	// ErrEntryTerminal is returned when cancelling an entry that already
	// reached a terminal state.
	ErrEntryTerminal = errors.New("entry is already closed")

	// ErrDeadlinePassed is returned when an offer response arrives after the
	// response deadline. The failed call still expires the entry so it does
	// not linger as notified.
	ErrDeadlinePassed = errors.New("response deadline has passed")

	// ErrSlotTaken is returned when an accepted slot was booked by someone
	// else between the offer and the response. The entry is expired as a side
	// effect.
	ErrSlotTaken = errors.New("slot was taken by another booking")
)

// SlotsAvailableError rejects a join when bookable slots already exist inside
// the requested window. It is a redirect signal rather than a hard failure:
// the carried slots let the caller book directly instead of queueing.
type SlotsAvailableError struct {
	Slots []domain.TimeSlot
}

// Error implements the error interface.
func (e *SlotsAvailableError) Error() string {
	return fmt.Sprintf("%d slots are already available in the requested window", len(e.Slots))
}

// AsSlotsAvailable unwraps err into a SlotsAvailableError, if it is one.
func AsSlotsAvailable(err error) (*SlotsAvailableError, bool) {
	var sa *SlotsAvailableError
	if errors.As(err, &sa) {
		return sa, true
	}
	return nil, false
}
