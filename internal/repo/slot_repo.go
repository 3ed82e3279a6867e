// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the TimeSlot
// model. The engine only reads slots and flips their booked flag; it never
// generates them.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// GetSlot fetches a slot by ID, or ErrNotFound if missing.
func GetSlot(ctx context.Context, db *gorm.DB, id string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListFreeSlotsBetween returns unbooked slots for salonID starting inside
// [from, to], optionally restricted to one staff member, ordered by start
// time. Used by the availability prober as a join-time guard.
func ListFreeSlotsBetween(ctx context.Context, db *gorm.DB, salonID string, from, to time.Time, staffID *string) ([]domain.TimeSlot, error) {
	q := db.WithContext(ctx).
		Where("salon_id = ? AND is_booked = ? AND start_time >= ? AND start_time <= ?",
			salonID, false, from, to)
	if staffID != nil {
		q = q.Where("staff_id = ?", *staffID)
	}
	var out []domain.TimeSlot
	err := q.Order("start_time asc").Find(&out).Error
	return out, err
}

// ListFreeFutureSlots returns a bounded page of unbooked slots starting after
// the given instant, soonest first. The availability sweep walks this page and
// offers each slot to its best-matched waiting entry.
func ListFreeFutureSlots(ctx context.Context, db *gorm.DB, after time.Time, limit int) ([]domain.TimeSlot, error) {
	var out []domain.TimeSlot
	err := db.WithContext(ctx).
		Where("is_booked = ? AND start_time > ?", false, after).
		Order("start_time asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkSlotBooked flips a slot's booked flag with a conditional update
// ("... WHERE is_booked = 0") and reports whether this caller actually won
// the slot. A false result means somebody else booked it first; the accept
// path treats that as the race-closing failure.
func MarkSlotBooked(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.TimeSlot{}).
		Where("id = ? AND is_booked = ?", id, false).
		Update("is_booked", true)
	return res.RowsAffected > 0, res.Error
}
