// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// WaitlistNotification audit model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// CreateNotification records one offer of slotID to entry waitlistID over the
// given channel, with a nil (pending) response. The unique (waitlist_id,
// slot_id) index rejects a second offer of the same slot to the same entry
// with ErrDuplicate.
func CreateNotification(ctx context.Context, db *gorm.DB, waitlistID, slotID, channel string, sentAt time.Time) (*domain.WaitlistNotification, error) {
	n := &domain.WaitlistNotification{
		ID:         uuid.NewString(),
		WaitlistID: waitlistID,
		SlotID:     slotID,
		Channel:    channel,
		SentAt:     sentAt,
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return n, nil
}

// CloseNotification resolves the pending offer for (waitlistID, slotID) with
// the given response. The "response IS NULL" guard means an offer is closed
// exactly once; closing an already-closed offer affects zero rows and returns
// false.
func CloseNotification(ctx context.Context, db *gorm.DB, waitlistID, slotID, response string, respondedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.WaitlistNotification{}).
		Where("waitlist_id = ? AND slot_id = ? AND response IS NULL", waitlistID, slotID).
		Updates(map[string]any{
			"response":     response,
			"responded_at": respondedAt,
		})
	return res.RowsAffected > 0, res.Error
}

// GetOpenNotification returns the pending offer for an entry, or ErrNotFound
// when no offer is outstanding.
func GetOpenNotification(ctx context.Context, db *gorm.DB, waitlistID string) (*domain.WaitlistNotification, error) {
	var n domain.WaitlistNotification
	err := db.WithContext(ctx).
		Where("waitlist_id = ? AND response IS NULL", waitlistID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}
