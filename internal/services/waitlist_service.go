// Package services – WaitlistService
//
// This file implements the queue store use-cases: the eight-step join
// protocol, queue position display, customer-initiated cancellation, the
// customer's enriched entry listing, and the owner-only salon overview.
// Service-level errors (ErrDuplicateEntry, ErrTooManyEntries, …) are returned
// for predictable cases so handlers can map them to HTTP results
// consistently.
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

// JoinRequest carries a validated-at-the-edge join payload into the service.
type JoinRequest struct {
	SalonID         string
	ServiceID       string
	StaffID         *string
	RequestedDate   string // "YYYY-MM-DD"
	WindowStart     string // "HH:MM"
	WindowEnd       string // "HH:MM"
	FlexibilityDays int
}

// EntrySummary is a customer-facing view of one waitlist entry, enriched with
// directory names and the live queue position.
type EntrySummary struct {
	Entry       domain.WaitlistEntry `json:"entry"`
	SalonName   string               `json:"salon_name"`
	ServiceName string               `json:"service_name"`
	StaffName   string               `json:"staff_name,omitempty"`
	Position    int                  `json:"position"`
}

// SalonOverview aggregates a salon's waitlist for its owner.
type SalonOverview struct {
	SalonID          string                `json:"salon_id"`
	CountsByStatus   []repo.StatusCount    `json:"counts_by_status"`
	WaitingByDate    []repo.DateCount      `json:"waiting_by_date"`
	WaitingByService []repo.ServiceCount   `json:"waiting_by_service"`
	RecentEntries    []domain.WaitlistEntry `json:"recent_entries"`
}

// WaitlistService provides the join/cancel/list operations over the queue
// store. All writes to waitlist entries and notifications go through this
// package; no other component touches those rows directly.
type WaitlistService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Loyalty resolves customer tiers for priority assignment.
	Loyalty LoyaltyLookup
	// Matcher re-offers slots released by cancellations of notified entries.
	Matcher *MatchService

	// MaxEntriesPerDate caps a customer's live entries per requested date.
	MaxEntriesPerDate int
	// MinWindow is the narrowest acceptable time window.
	MinWindow time.Duration
	// EntryTTLDays sets an entry's overall expiry past its requested date.
	EntryTTLDays int
}

// NewWaitlistService constructs a WaitlistService with the documented
// defaults: five live entries per date, 30-minute minimum window, seven-day
// entry expiry.
func NewWaitlistService(db *gorm.DB, loyalty LoyaltyLookup, matcher *MatchService) *WaitlistService {
	return &WaitlistService{
		DB:                db,
		Loyalty:           loyalty,
		Matcher:           matcher,
		MaxEntriesPerDate: 5,
		MinWindow:         30 * time.Minute,
		EntryTTLDays:      7,
	}
}

// Join runs the full join protocol and returns the created entry with its
// queue position (1-based).
//
// Steps, failing fast at the first violation:
//  1. reject past dates (ErrPastDate);
//  2. validate salon/service/staff references and the time window;
//  3. reject a duplicate live entry for the tuple (ErrDuplicateEntry);
//  4. reject when the customer is at the per-date cap (ErrTooManyEntries);
//  5. probe availability — free slots in the window mean the customer should
//     book directly, so the join fails with SlotsAvailableError carrying them;
//  6. resolve priority from the loyalty tier (fail-open to base);
//  7. insert with status waiting and expiry at requested date + TTL; the
//     unique active-key index makes the duplicate check race-free at insert;
//  8. compute the entry's position among waiting peers.
func (s *WaitlistService) Join(ctx context.Context, customerID string, req JoinRequest) (*domain.WaitlistEntry, int, error) {
	day, err := ParseDate(req.RequestedDate)
	if err != nil {
		return nil, 0, ErrPastDate
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return nil, 0, ErrPastDate
	}

	if _, _, _, err := ValidateEntities(ctx, s.DB, req.SalonID, req.ServiceID, req.StaffID); err != nil {
		return nil, 0, err
	}
	if err := ValidateWindow(req.WindowStart, req.WindowEnd, s.MinWindow); err != nil {
		return nil, 0, err
	}
	// Canonicalize the bounds before they reach storage or the prober; an
	// unpadded "9:00" would lose every lexical comparison against slot clocks.
	if req.WindowStart, err = NormalizeClock(req.WindowStart); err != nil {
		return nil, 0, err
	}
	if req.WindowEnd, err = NormalizeClock(req.WindowEnd); err != nil {
		return nil, 0, err
	}

	dup, err := repo.HasActiveDuplicate(ctx, s.DB, customerID, req.SalonID, req.ServiceID, req.RequestedDate)
	if err != nil {
		return nil, 0, err
	}
	if dup {
		return nil, 0, ErrDuplicateEntry
	}

	active, err := repo.CountActiveForDate(ctx, s.DB, customerID, req.RequestedDate)
	if err != nil {
		return nil, 0, err
	}
	if active >= int64(s.MaxEntriesPerDate) {
		return nil, 0, ErrTooManyEntries
	}

	free, err := ProbeAvailability(ctx, s.DB, req.SalonID, req.RequestedDate, req.WindowStart, req.WindowEnd, req.StaffID)
	if err != nil {
		return nil, 0, err
	}
	if len(free) > 0 {
		return nil, 0, &SlotsAvailableError{Slots: free}
	}

	priority := ResolvePriority(ctx, s.Loyalty, customerID)

	key := domain.ActiveKeyFor(customerID, req.SalonID, req.ServiceID, req.RequestedDate)
	entry := &domain.WaitlistEntry{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		SalonID:         req.SalonID,
		ServiceID:       req.ServiceID,
		StaffID:         req.StaffID,
		RequestedDate:   req.RequestedDate,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		FlexibilityDays: req.FlexibilityDays,
		Priority:        priority,
		Status:          domain.StatusWaiting,
		ExpiresAt:       day.AddDate(0, 0, s.EntryTTLDays),
		ActiveKey:       &key,
		CreatedAt:       time.Now().UTC(),
	}
	if err := repo.CreateEntry(ctx, s.DB, entry); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, 0, ErrDuplicateEntry
		}
		return nil, 0, err
	}

	pos, err := s.positionOf(ctx, entry)
	if err != nil {
		return nil, 0, err
	}
	return entry, pos, nil
}

// QueuePosition returns the entry's 1-based rank among waiting entries for
// the same salon and date: higher priority first, ties broken by earlier
// creation. Entries in any other status report position 0.
func (s *WaitlistService) QueuePosition(ctx context.Context, entryID string) (int, error) {
	entry, err := repo.GetEntry(ctx, s.DB, entryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrEntryNotFound
		}
		return 0, err
	}
	return s.positionOf(ctx, entry)
}

// positionOf computes the position for an already-loaded entry.
func (s *WaitlistService) positionOf(ctx context.Context, entry *domain.WaitlistEntry) (int, error) {
	if entry.Status != domain.StatusWaiting {
		return 0, nil
	}
	ahead, err := repo.CountWaitingAhead(ctx, s.DB, entry)
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// Cancel closes the customer's own waiting or notified entry. A notified
// entry releases its held slot back to the matcher so the next candidate is
// offered immediately rather than waiting for the escalation sweep.
func (s *WaitlistService) Cancel(ctx context.Context, customerID, entryID string) error {
	entry, err := repo.GetEntry(ctx, s.DB, entryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	if entry.CustomerID != customerID {
		return ErrNotEntryOwner
	}

	prior, err := repo.MarkCancelled(ctx, s.DB, entryID)
	if err != nil {
		return err
	}
	if prior == "" {
		return ErrEntryTerminal
	}

	if prior == domain.StatusNotified {
		// The offer may have landed after the ownership read, so the slot ID
		// comes from a fresh fetch rather than the pre-cancel snapshot.
		fresh, err := repo.GetEntry(ctx, s.DB, entryID)
		if err != nil {
			return err
		}
		if fresh.NotifiedSlotID == nil {
			return nil
		}
		slotID := *fresh.NotifiedSlotID
		if _, err := repo.CloseNotification(ctx, s.DB, entry.ID, slotID, domain.ResponseDeclined, time.Now().UTC()); err != nil {
			return err
		}
		if _, err := s.Matcher.ProcessNextInQueue(ctx, slotID); err != nil {
			return err
		}
	}
	return nil
}

// ListMine returns a page of the customer's entries enriched with directory
// names and live positions, most recent first, plus the total count.
func (s *WaitlistService) ListMine(ctx context.Context, customerID string, page, pageSize int) ([]EntrySummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountEntriesForCustomer(ctx, s.DB, customerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []EntrySummary{}, 0, nil
	}

	entries, err := repo.ListEntriesForCustomer(ctx, s.DB, customerID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}

	out := make([]EntrySummary, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		sum := EntrySummary{Entry: *e}
		if salon, err := repo.GetSalon(ctx, s.DB, e.SalonID); err == nil {
			sum.SalonName = salon.Name
		}
		if svc, err := repo.GetServiceForSalon(ctx, s.DB, e.ServiceID, e.SalonID); err == nil {
			sum.ServiceName = svc.Name
		}
		if e.StaffID != nil {
			if st, err := repo.GetStaffForSalon(ctx, s.DB, *e.StaffID, e.SalonID); err == nil {
				sum.StaffName = st.Name
			}
		}
		if pos, err := s.positionOf(ctx, e); err == nil {
			sum.Position = pos
		}
		out = append(out, sum)
	}
	return out, total, nil
}

// Overview returns the salon's waitlist aggregates for its owner. Requests by
// anyone else fail with ErrNotSalonOwner.
func (s *WaitlistService) Overview(ctx context.Context, requesterID, salonID string) (*SalonOverview, error) {
	salon, err := repo.GetSalon(ctx, s.DB, salonID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSalonNotFound
		}
		return nil, err
	}
	if salon.OwnerID != requesterID {
		return nil, ErrNotSalonOwner
	}

	byStatus, err := repo.CountEntriesByStatus(ctx, s.DB, salonID)
	if err != nil {
		return nil, err
	}
	byDate, err := repo.CountWaitingByDate(ctx, s.DB, salonID)
	if err != nil {
		return nil, err
	}
	byService, err := repo.CountWaitingByService(ctx, s.DB, salonID)
	if err != nil {
		return nil, err
	}
	recent, err := repo.ListRecentEntries(ctx, s.DB, salonID, 10)
	if err != nil {
		return nil, err
	}

	return &SalonOverview{
		SalonID:          salonID,
		CountsByStatus:   byStatus,
		WaitingByDate:    byDate,
		WaitingByService: byService,
		RecentEntries:    recent,
	}, nil
}
