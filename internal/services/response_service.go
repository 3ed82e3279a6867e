// Package services – ResponseService
//
// This file implements the response handler for slot offers: a notified
// customer accepts or declines within the response deadline. Accepting
// converts the offer into a confirmed booking inside a single transaction
// whose race gate is the conditional slot update; declining (or arriving
// late) releases the slot back to the matcher for the next candidate.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
)

// RespondResult reports the outcome of an offer response. BookingID and the
// slot fields are populated only for accepts.
type RespondResult struct {
	Response  string    `json:"response"`
	BookingID string    `json:"booking_id,omitempty"`
	SlotID    string    `json:"slot_id,omitempty"`
	SlotStart time.Time `json:"slot_start,omitempty"`
}

// ResponseService processes accept/decline responses against notified
// entries.
type ResponseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Matcher re-offers slots released by declines and late responses.
	Matcher *MatchService
}

// Respond processes a customer's response to an outstanding offer.
//
// Semantics:
//   - response must be "accepted" or "declined" (ErrInvalidResponse);
//   - the entry must exist, belong to customerID, and be notified
//     (ErrEntryNotFound / ErrNotEntryOwner / ErrEntryNotNotified);
//   - past the response deadline the call fails with ErrDeadlinePassed, and
//     the failure itself expires the entry and releases the slot — a lazy
//     expiry so stale offers never linger as notified;
//   - declined: the entry is cancelled, the offer closed, and the slot
//     re-offered to the next fresh match;
//   - accepted: booking conversion runs in one transaction; see accept().
func (s *ResponseService) Respond(ctx context.Context, customerID, entryID, response string) (*RespondResult, error) {
	if response != domain.ResponseAccepted && response != domain.ResponseDeclined {
		return nil, ErrInvalidResponse
	}

	entry, err := repo.GetEntry(ctx, s.DB, entryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if entry.CustomerID != customerID {
		return nil, ErrNotEntryOwner
	}
	if entry.Status != domain.StatusNotified || entry.NotifiedSlotID == nil || entry.ResponseDeadline == nil {
		return nil, ErrEntryNotNotified
	}

	now := time.Now().UTC()
	slotID := *entry.NotifiedSlotID

	if now.After(*entry.ResponseDeadline) {
		if err := s.expireAndRelease(ctx, entry, slotID, now); err != nil {
			return nil, err
		}
		return nil, ErrDeadlinePassed
	}

	if response == domain.ResponseDeclined {
		prior, err := repo.MarkCancelled(ctx, s.DB, entry.ID)
		if err != nil {
			return nil, err
		}
		if prior != domain.StatusNotified {
			return nil, ErrEntryNotNotified
		}
		if _, err := repo.CloseNotification(ctx, s.DB, entry.ID, slotID, domain.ResponseDeclined, now); err != nil {
			return nil, err
		}
		offersDeclined.Inc()
		if _, err := s.Matcher.ProcessNextInQueue(ctx, slotID); err != nil {
			return nil, err
		}
		return &RespondResult{Response: domain.ResponseDeclined}, nil
	}

	return s.accept(ctx, entry, slotID, now)
}

// accept converts an in-deadline offer into a confirmed booking.
//
// Steps 1–7 run inside one transaction:
//  1. re-fetch the slot (missing → ErrSlotNotFound);
//  2. flip is_booked with a conditional update — zero rows affected means
//     somebody else booked it first and the transaction aborts with
//     ErrSlotTaken;
//  3. re-fetch service pricing and the customer identity;
//  4. insert the confirmed booking (pay-at-salon, price from the service);
//  5. move the entry to booked (conditional on still being notified);
//  6. close the offer with response accepted.
//
// A lost slot race rolls the transaction back, then expires the entry and
// closes the offer outside it: the failed accept must still close out the
// entry so it does not linger as notified.
func (s *ResponseService) accept(ctx context.Context, entry *domain.WaitlistEntry, slotID string, now time.Time) (*RespondResult, error) {
	var result RespondResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := repo.GetSlot(ctx, tx, slotID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrSlotTaken
			}
			return err
		}

		won, err := repo.MarkSlotBooked(ctx, tx, slot.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrSlotTaken
		}

		svc, err := repo.GetServiceForSalon(ctx, tx, entry.ServiceID, entry.SalonID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		if _, err := repo.GetCustomer(ctx, tx, entry.CustomerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		booking := &domain.Booking{
			ID:            uuid.NewString(),
			CustomerID:    entry.CustomerID,
			SalonID:       entry.SalonID,
			ServiceID:     entry.ServiceID,
			StaffID:       slot.StaffID,
			SlotID:        slot.ID,
			Status:        "confirmed",
			Amount:        svc.Price,
			PaymentMethod: "pay_at_salon",
			CreatedAt:     now,
		}
		if err := repo.CreateBooking(ctx, tx, booking); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrSlotTaken
			}
			return err
		}

		moved, err := repo.MarkBooked(ctx, tx, entry.ID, now)
		if err != nil {
			return err
		}
		if !moved {
			return ErrEntryNotNotified
		}

		if _, err := repo.CloseNotification(ctx, tx, entry.ID, slot.ID, domain.ResponseAccepted, now); err != nil {
			return err
		}

		result = RespondResult{
			Response:  domain.ResponseAccepted,
			BookingID: booking.ID,
			SlotID:    slot.ID,
			SlotStart: slot.StartTime,
		}
		return nil
	})

	if errors.Is(err, ErrSlotTaken) {
		if expErr := s.expireAndRelease(ctx, entry, slotID, now); expErr != nil {
			return nil, expErr
		}
		return nil, ErrSlotTaken
	}
	if err != nil {
		return nil, err
	}

	bookingsConverted.Inc()
	return &result, nil
}

// expireAndRelease expires a notified entry whose offer fell through (late
// response or lost slot race), closes the pending notification, and hands the
// slot back to the matcher. Each step is conditional, so a concurrent sweep
// doing the same work is harmless.
func (s *ResponseService) expireAndRelease(ctx context.Context, entry *domain.WaitlistEntry, slotID string, now time.Time) error {
	if _, err := repo.MarkExpired(ctx, s.DB, entry.ID, domain.StatusNotified); err != nil {
		return err
	}
	if _, err := repo.CloseNotification(ctx, s.DB, entry.ID, slotID, domain.ResponseExpired, now); err != nil {
		return err
	}
	if _, err := s.Matcher.ProcessNextInQueue(ctx, slotID); err != nil {
		return err
	}
	return nil
}
