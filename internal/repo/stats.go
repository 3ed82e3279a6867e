// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries for the salon-owner
// waitlist overview.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
)

// StatusCount is one (status, count) aggregate row.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DateCount is one (requested date, waiting count) aggregate row.
type DateCount struct {
	RequestedDate string `json:"requested_date"`
	Count         int64  `json:"count"`
}

// ServiceCount is one (service, waiting count) aggregate row.
type ServiceCount struct {
	ServiceID string `json:"service_id"`
	Count     int64  `json:"count"`
}

// CountEntriesByStatus returns entry counts per status for a salon.
func CountEntriesByStatus(ctx context.Context, db *gorm.DB, salonID string) ([]StatusCount, error) {
	var out []StatusCount
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Select("status, count(*) as count").
		Where("salon_id = ?", salonID).
		Group("status").
		Scan(&out).Error
	return out, err
}

// CountWaitingByDate returns waiting-entry counts per requested date for a
// salon, soonest date first.
func CountWaitingByDate(ctx context.Context, db *gorm.DB, salonID string) ([]DateCount, error) {
	var out []DateCount
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Select("requested_date, count(*) as count").
		Where("salon_id = ? AND status = ?", salonID, domain.StatusWaiting).
		Group("requested_date").
		Order("requested_date asc").
		Scan(&out).Error
	return out, err
}

// CountWaitingByService returns waiting-entry counts per service for a salon,
// busiest service first.
func CountWaitingByService(ctx context.Context, db *gorm.DB, salonID string) ([]ServiceCount, error) {
	var out []ServiceCount
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Select("service_id, count(*) as count").
		Where("salon_id = ? AND status = ?", salonID, domain.StatusWaiting).
		Group("service_id").
		Order("count desc").
		Scan(&out).Error
	return out, err
}

// ListRecentEntries returns the most recently created entries for a salon,
// bounded by limit.
func ListRecentEntries(ctx context.Context, db *gorm.DB, salonID string, limit int) ([]domain.WaitlistEntry, error) {
	var out []domain.WaitlistEntry
	err := db.WithContext(ctx).
		Where("salon_id = ?", salonID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
