// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only lookups for the directory
// entities the waitlist engine validates against: salons, services, staff,
// and customers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// GetSalon fetches a salon by ID, or ErrNotFound if missing.
func GetSalon(ctx context.Context, db *gorm.DB, id string) (*domain.Salon, error) {
	var s domain.Salon
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetServiceForSalon fetches a service by ID scoped to a salon; a service that
// exists but belongs to a different salon is ErrNotFound.
func GetServiceForSalon(ctx context.Context, db *gorm.DB, serviceID, salonID string) (*domain.Service, error) {
	var s domain.Service
	err := db.WithContext(ctx).
		Where("id = ? AND salon_id = ?", serviceID, salonID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStaffForSalon fetches a staff member by ID scoped to a salon.
func GetStaffForSalon(ctx context.Context, db *gorm.DB, staffID, salonID string) (*domain.Staff, error) {
	var s domain.Staff
	err := db.WithContext(ctx).
		Where("id = ? AND salon_id = ?", staffID, salonID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCustomer fetches a customer by ID, or ErrNotFound if missing.
func GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
