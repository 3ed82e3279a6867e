// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// WaitlistEntry model: inserts guarded against duplicate joins, queue-order
// queries, and every status transition of the entry state machine.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Transition semantics:
//   - Every transition conditioned on the current status is a single
//     conditional UPDATE ("... WHERE status = ?"). The boolean result reports
//     whether the row was actually moved; false means another caller won the
//     race and the caller should treat it as a benign no-op.
//   - Terminal transitions clear active_key so the customer can join again
//     for the same (salon, service, date) tuple afterwards.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation, e.g. a second live
// waitlist entry for the same (customer, salon, service, date) tuple.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey. glebarez/sqlite often returns
// plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// CreateEntry inserts a new waitlist entry. The caller is expected to have
// populated ActiveKey; a collision on it means another live entry already
// exists for the tuple and ErrDuplicate is returned. This is what makes the
// duplicate check race-free: two concurrent joins both pass the read check,
// but only one insert survives the unique index.
func CreateEntry(ctx context.Context, db *gorm.DB, e *domain.WaitlistEntry) error {
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetEntry fetches a waitlist entry by ID, or ErrNotFound if missing.
func GetEntry(ctx context.Context, db *gorm.DB, id string) (*domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// CountEntriesForCustomer returns the total number of entries owned by the
// customer, for pagination.
func CountEntriesForCustomer(ctx context.Context, db *gorm.DB, customerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("customer_id = ?", customerID).
		Count(&total).Error
	return total, err
}

// ListEntriesForCustomer returns a page of the customer's entries, most recent
// first.
func ListEntriesForCustomer(ctx context.Context, db *gorm.DB, customerID string, offset, limit int) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountActiveForDate returns how many live (waiting or notified) entries the
// customer holds for requestedDate across all salons and services. Used to
// enforce the per-date entry cap.
func CountActiveForDate(ctx context.Context, db *gorm.DB, customerID, requestedDate string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("customer_id = ? AND requested_date = ? AND status IN ?",
			customerID, requestedDate, []string{domain.StatusWaiting, domain.StatusNotified}).
		Count(&total).Error
	return total, err
}

// HasActiveDuplicate reports whether a live entry already exists for the
// (customer, salon, service, date) tuple. This read is advisory; the unique
// active_key index is the authoritative guard at insert time.
func HasActiveDuplicate(ctx context.Context, db *gorm.DB, customerID, salonID, serviceID, requestedDate string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("active_key = ?", domain.ActiveKeyFor(customerID, salonID, serviceID, requestedDate)).
		Count(&total).Error
	return total > 0, err
}

// CountWaitingAhead returns how many waiting entries for the same salon and
// requested date rank strictly ahead of e: higher priority first, ties broken
// by earlier creation time. Adding one yields the entry's queue position.
func CountWaitingAhead(ctx context.Context, db *gorm.DB, e *domain.WaitlistEntry) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("salon_id = ? AND requested_date = ? AND status = ? AND id <> ?",
			e.SalonID, e.RequestedDate, domain.StatusWaiting, e.ID).
		Where("priority > ? OR (priority = ? AND created_at < ?)", e.Priority, e.Priority, e.CreatedAt).
		Count(&total).Error
	return total, err
}

// ListWaitingInWindow returns every waiting entry for salonID whose time
// window contains slotClock ("HH:MM", zero-padded so lexical comparison is
// chronological), in canonical queue order: priority descending, then creation
// time ascending. Flexibility-day and staff compatibility are filtered by the
// caller with the shared predicate.
func ListWaitingInWindow(ctx context.Context, db *gorm.DB, salonID, slotClock string) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := db.WithContext(ctx).
		Where("salon_id = ? AND status = ? AND window_start <= ? AND window_end >= ?",
			salonID, domain.StatusWaiting, slotClock, slotClock).
		Order("priority desc, created_at asc").
		Find(&out).Error
	return out, err
}

// MarkNotified transitions an entry from waiting to notified, stamping the
// offered slot and response deadline. Returns false when the entry was no
// longer waiting (already notified, cancelled, or swept).
func MarkNotified(ctx context.Context, db *gorm.DB, id, slotID string, now, deadline time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, domain.StatusWaiting).
		Updates(map[string]any{
			"status":            domain.StatusNotified,
			"notified_slot_id":  slotID,
			"notified_at":       now,
			"response_deadline": deadline,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkBooked transitions an entry from notified to booked and clears the
// duplicate guard. Returns false when the entry was not in notified state.
func MarkBooked(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, domain.StatusNotified).
		Updates(map[string]any{
			"status":     domain.StatusBooked,
			"booked_at":  now,
			"active_key": nil,
		})
	return res.RowsAffected > 0, res.Error
}

// MarkCancelled transitions a live entry (waiting or notified) to cancelled
// and clears the duplicate guard. It returns the status the entry actually
// moved from, or "" when the entry was already terminal. Callers use the
// reported status, not a pre-read snapshot, to decide whether a held slot
// must be released: the entry may have been notified between their read and
// this update.
func MarkCancelled(ctx context.Context, db *gorm.DB, id string) (string, error) {
	for _, from := range []string{domain.StatusWaiting, domain.StatusNotified} {
		res := db.WithContext(ctx).
			Model(&domain.WaitlistEntry{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{
				"status":     domain.StatusCancelled,
				"active_key": nil,
			})
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected > 0 {
			return from, nil
		}
	}
	return "", nil
}

// MarkExpired transitions an entry to expired from the expected current
// status and clears the duplicate guard. Re-expiring an already-expired entry
// affects zero rows, which keeps sweep invocations idempotent.
func MarkExpired(ctx context.Context, db *gorm.DB, id, fromStatus string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]any{
			"status":     domain.StatusExpired,
			"active_key": nil,
		})
	return res.RowsAffected > 0, res.Error
}

// ExpireOverdueWaiting bulk-transitions every waiting entry whose overall
// expiry has passed to expired, returning how many rows moved. Entries in any
// other status are untouched.
func ExpireOverdueWaiting(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("status = ? AND expires_at < ?", domain.StatusWaiting, now).
		Updates(map[string]any{
			"status":     domain.StatusExpired,
			"active_key": nil,
		})
	return res.RowsAffected, res.Error
}

// ListNotifiedPastDeadline returns notified entries whose response deadline
// has elapsed, oldest deadline first, bounded by limit. The escalation sweep
// expires each and re-offers the released slot.
func ListNotifiedPastDeadline(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := db.WithContext(ctx).
		Where("status = ? AND response_deadline < ?", domain.StatusNotified, now).
		Order("response_deadline asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
