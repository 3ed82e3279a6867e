// Package services – MatchService
//
// This file implements the queue matcher: given a freed slot, find the
// best-ranked compatible waiting entry, move it to notified with a stamped
// response deadline, record the offer, and hand the payload to the delivery
// collaborator.
//
// Only one entry is notified per freed slot at a time, never a broadcast to
// all matches. That guarantees at most one booking per slot without locking
// around the whole queue; when an offer is declined or expires, the next
// candidate comes from a fresh match so newer high-priority joins can jump
// ahead of a previously-second-place entry.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/notify"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
)

// MatchService offers freed slots to waiting entries.
type MatchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Sender delivers offers; failures are logged, not retried.
	Sender notify.Sender
	// ResponseDeadline bounds how long a notified customer may hold a slot.
	ResponseDeadline time.Duration
	// Channel is the delivery channel recorded on notifications.
	Channel string
}

// NewMatchService constructs a MatchService with the default offer channel.
func NewMatchService(db *gorm.DB, sender notify.Sender, deadline time.Duration) *MatchService {
	return &MatchService{
		DB:               db,
		Sender:           sender,
		ResponseDeadline: deadline,
		Channel:          notify.ChannelPush,
	}
}

// FindMatchingEntries returns every waiting entry compatible with the slot in
// canonical queue order: priority descending, then creation time ascending.
// The store query narrows by salon and time-window containment; flexibility
// distance and staff constraints are applied in memory with the shared
// predicate.
func (s *MatchService) FindMatchingEntries(ctx context.Context, slotID string) ([]domain.WaitlistEntry, error) {
	slot, err := repo.GetSlot(ctx, s.DB, slotID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	candidates, err := repo.ListWaitingInWindow(ctx, s.DB, slot.SalonID, SlotClock(slot))
	if err != nil {
		return nil, err
	}

	matched := candidates[:0]
	for i := range candidates {
		if IsCompatible(&candidates[i], slot) {
			matched = append(matched, candidates[i])
		}
	}
	return matched, nil
}

// NotifyEntry moves a waiting entry to notified for the given slot, stamps
// the response deadline, records the offer, and dispatches delivery. It
// reports false when the entry was no longer waiting — a benign sign that a
// concurrent caller won the entry first.
//
// This is the sole mutation that moves an entry out of "waiting".
func (s *MatchService) NotifyEntry(ctx context.Context, entry *domain.WaitlistEntry, slot *domain.TimeSlot) (bool, error) {
	now := time.Now().UTC()
	deadline := now.Add(s.ResponseDeadline)

	moved, err := repo.MarkNotified(ctx, s.DB, entry.ID, slot.ID, now, deadline)
	if err != nil || !moved {
		return false, err
	}

	if _, err := repo.CreateNotification(ctx, s.DB, entry.ID, slot.ID, s.Channel, now); err != nil {
		return false, err
	}
	notificationsSent.Inc()

	payload := notify.OfferPayload{
		EntryID:   entry.ID,
		SlotID:    slot.ID,
		SalonID:   slot.SalonID,
		StaffID:   slot.StaffID,
		StartTime: slot.StartTime,
		Deadline:  deadline,
	}
	if err := s.Sender.Send(ctx, entry.CustomerID, s.Channel, payload); err != nil {
		// Delivery retry belongs to the communication service; the offer
		// stands and the response deadline still applies.
		log.Warn().Err(err).
			Str("entry_id", entry.ID).
			Str("slot_id", slot.ID).
			Msg("offer delivery failed")
	}
	return true, nil
}

// ProcessSlotRelease offers a freed slot to the best-matched waiting entry.
// At most one entry is notified; if the top candidate is snatched by a
// concurrent transition the next one is tried. A slot that is missing or
// already booked is left alone.
//
// Returns the ID of the notified entry, or "" when nobody matched.
func (s *MatchService) ProcessSlotRelease(ctx context.Context, slotID string) (string, error) {
	slot, err := repo.GetSlot(ctx, s.DB, slotID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if slot.IsBooked {
		return "", nil
	}

	matches, err := s.FindMatchingEntries(ctx, slotID)
	if err != nil {
		return "", err
	}
	for i := range matches {
		notified, err := s.NotifyEntry(ctx, &matches[i], slot)
		if err != nil {
			return "", err
		}
		if notified {
			return matches[i].ID, nil
		}
	}
	return "", nil
}

// ProcessNextInQueue re-offers a slot after a decline or an escalated
// timeout. The candidate list is recomputed from scratch, not cached.
func (s *MatchService) ProcessNextInQueue(ctx context.Context, slotID string) (string, error) {
	return s.ProcessSlotRelease(ctx, slotID)
}
