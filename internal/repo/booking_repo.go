// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model created by the accept path.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// CreateBooking inserts a confirmed booking row. The unique slot index maps a
// second booking of the same slot to ErrDuplicate, backstopping the
// conditional slot update in the accept transaction.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetBooking fetches a booking by ID, or ErrNotFound if missing.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
