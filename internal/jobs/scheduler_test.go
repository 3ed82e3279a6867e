package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/notify"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
	"github.com/tbourn/go-waitlist-backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:jobs_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newScheduler(t *testing.T) (*Scheduler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	matcher := services.NewMatchService(db, notify.LogSender{}, 15*time.Minute)
	return New(db, matcher, DefaultConfig()), db
}

// seedEntry inserts a waitlist entry directly; sweeps operate on stored rows,
// not on the join protocol.
func seedEntry(t *testing.T, db *gorm.DB, mutate func(*domain.WaitlistEntry)) *domain.WaitlistEntry {
	t.Helper()
	date := time.Now().UTC().AddDate(0, 0, 3)
	e := &domain.WaitlistEntry{
		ID:            uuid.NewString(),
		CustomerID:    uuid.NewString(),
		SalonID:       uuid.NewString(),
		ServiceID:     uuid.NewString(),
		RequestedDate: date.Format("2006-01-02"),
		WindowStart:   "10:00",
		WindowEnd:     "14:00",
		Priority:      domain.PriorityRegular,
		Status:        domain.StatusWaiting,
		ExpiresAt:     date.AddDate(0, 0, 7),
		CreatedAt:     time.Now().UTC(),
	}
	if mutate != nil {
		mutate(e)
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return e
}

func TestRunExpirySweep_ExpiresOverdueWaitingOnly(t *testing.T) {
	s, db := newScheduler(t)
	ctx := context.Background()

	overdue := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	})
	fresh := seedEntry(t, db, nil)
	booked := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.Status = domain.StatusBooked
		e.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	})

	s.RunExpirySweep(ctx)

	want := map[string]string{
		overdue.ID: domain.StatusExpired,
		fresh.ID:   domain.StatusWaiting,
		booked.ID:  domain.StatusBooked,
	}
	for id, status := range want {
		var got domain.WaitlistEntry
		if err := db.First(&got, "id = ?", id).Error; err != nil {
			t.Fatalf("reload %s: %v", id, err)
		}
		if got.Status != status {
			t.Fatalf("entry %s: status = %q, want %q", id, got.Status, status)
		}
	}

	// Second run finds nothing; statuses are stable.
	s.RunExpirySweep(ctx)
	var expired int64
	db.Model(&domain.WaitlistEntry{}).Where("status = ?", domain.StatusExpired).Count(&expired)
	if expired != 1 {
		t.Fatalf("expired count = %d, want 1", expired)
	}
}

func TestRunExpirySweep_ReentrancyGuardSkips(t *testing.T) {
	s, db := newScheduler(t)

	seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	})

	s.expiryRunning.Store(true)
	s.RunExpirySweep(context.Background())

	var expired int64
	db.Model(&domain.WaitlistEntry{}).Where("status = ?", domain.StatusExpired).Count(&expired)
	if expired != 0 {
		t.Fatal("guarded sweep must not run")
	}

	s.expiryRunning.Store(false)
	s.RunExpirySweep(context.Background())
	db.Model(&domain.WaitlistEntry{}).Where("status = ?", domain.StatusExpired).Count(&expired)
	if expired != 1 {
		t.Fatal("sweep must run once the guard clears")
	}
}

func TestRunEscalationSweep_ExpiresAndPassesSlotOn(t *testing.T) {
	s, db := newScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	salonID := uuid.NewString()
	date := now.AddDate(0, 0, 3)
	start, _ := time.Parse("2006-01-02 15:04", date.Format("2006-01-02")+" 11:00")
	slot := domain.TimeSlot{ID: uuid.NewString(), SalonID: salonID, StaffID: uuid.NewString(), StartTime: start.UTC()}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	pastDeadline := now.Add(-time.Minute)
	notifiedAt := now.Add(-20 * time.Minute)
	lapsed := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.SalonID = salonID
		e.RequestedDate = date.Format("2006-01-02")
		e.Status = domain.StatusNotified
		e.NotifiedSlotID = &slot.ID
		e.NotifiedAt = &notifiedAt
		e.ResponseDeadline = &pastDeadline
	})
	if _, err := repo.CreateNotification(ctx, db, lapsed.ID, slot.ID, "push", notifiedAt); err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	next := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.SalonID = salonID
		e.RequestedDate = date.Format("2006-01-02")
	})

	s.RunEscalationSweep(ctx)

	var gotLapsed, gotNext domain.WaitlistEntry
	if err := db.First(&gotLapsed, "id = ?", lapsed.ID).Error; err != nil {
		t.Fatalf("reload lapsed: %v", err)
	}
	if gotLapsed.Status != domain.StatusExpired {
		t.Fatalf("lapsed status = %q, want expired", gotLapsed.Status)
	}
	if err := db.First(&gotNext, "id = ?", next.ID).Error; err != nil {
		t.Fatalf("reload next: %v", err)
	}
	if gotNext.Status != domain.StatusNotified || *gotNext.NotifiedSlotID != slot.ID {
		t.Fatalf("slot must pass to the next candidate: %+v", gotNext)
	}

	var n domain.WaitlistNotification
	if err := db.First(&n, "waitlist_id = ?", lapsed.ID).Error; err != nil {
		t.Fatalf("reload notification: %v", err)
	}
	if n.Response == nil || *n.Response != domain.ResponseExpired {
		t.Fatalf("notification response = %v, want expired", n.Response)
	}
}

func TestRunEscalationSweep_InDeadlineOffersUntouched(t *testing.T) {
	s, db := newScheduler(t)
	now := time.Now().UTC()

	future := now.Add(10 * time.Minute)
	slotID := uuid.NewString()
	fresh := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.Status = domain.StatusNotified
		e.NotifiedSlotID = &slotID
		e.NotifiedAt = &now
		e.ResponseDeadline = &future
	})

	s.RunEscalationSweep(context.Background())

	var got domain.WaitlistEntry
	if err := db.First(&got, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.StatusNotified {
		t.Fatalf("status = %q, want notified", got.Status)
	}
}

func TestRunAvailabilitySweep_OffersFreeFutureSlots(t *testing.T) {
	s, db := newScheduler(t)
	ctx := context.Background()

	salonID := uuid.NewString()
	date := time.Now().UTC().AddDate(0, 0, 3)
	start, _ := time.Parse("2006-01-02 15:04", date.Format("2006-01-02")+" 11:00")
	slot := domain.TimeSlot{ID: uuid.NewString(), SalonID: salonID, StaffID: uuid.NewString(), StartTime: start.UTC()}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	entry := seedEntry(t, db, func(e *domain.WaitlistEntry) {
		e.SalonID = salonID
		e.RequestedDate = date.Format("2006-01-02")
	})

	s.RunAvailabilitySweep(ctx)

	var got domain.WaitlistEntry
	if err := db.First(&got, "id = ?", entry.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.StatusNotified || *got.NotifiedSlotID != slot.ID {
		t.Fatalf("entry = %+v, want notified for slot", got)
	}

	// Idempotent: a second pass must not touch the now-notified entry.
	s.RunAvailabilitySweep(ctx)
	var notifications int64
	db.Model(&domain.WaitlistNotification{}).Count(&notifications)
	if notifications != 1 {
		t.Fatalf("notifications = %d, want 1", notifications)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s, _ := newScheduler(t)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
