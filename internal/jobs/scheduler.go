// Package jobs runs the periodic sweeps that drive the waitlist state
// machine when no explicit event fires: offering freed slots, expiring stale
// waiting entries, and escalating offers whose response deadline lapsed.
//
// Each job carries its own reentrancy guard — an atomic flag owned by the
// scheduler instance, checked at entry and cleared on the way out — so a slow
// cycle is skipped rather than overlapped. Sweeps are idempotent (every
// transition they make is a conditional update), so a skipped cycle is simply
// caught by the next one. The guard is process-local; running multiple
// instances against one store calls for a lease row instead.
//
// A failure inside one cycle is logged and counted, never propagated: a bad
// sweep must not take the process down or suppress the next scheduled run.
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
	"github.com/tbourn/go-waitlist-backend/internal/services"
)

// Config holds the sweep cadences and batch bounds.
type Config struct {
	// AvailabilityInterval is the cadence of the freed-slot scan.
	AvailabilityInterval time.Duration
	// ExpiryInterval is the cadence of the overall-expiry scan.
	ExpiryInterval time.Duration
	// EscalationInterval is the cadence of the lapsed-deadline scan.
	EscalationInterval time.Duration
	// SlotPageSize bounds how many free slots one availability cycle visits.
	SlotPageSize int
	// EscalationPageSize bounds how many lapsed offers one cycle escalates.
	EscalationPageSize int
}

// DefaultConfig returns the documented cadences: availability every five
// minutes, expiry hourly, escalation every fifteen minutes.
func DefaultConfig() Config {
	return Config{
		AvailabilityInterval: 5 * time.Minute,
		ExpiryInterval:       time.Hour,
		EscalationInterval:   15 * time.Minute,
		SlotPageSize:         100,
		EscalationPageSize:   100,
	}
}

// Scheduler owns the cron runner and the per-job guards.
type Scheduler struct {
	db      *gorm.DB
	matcher *services.MatchService
	cfg     Config
	cron    *cron.Cron
	logger  zerolog.Logger

	availabilityRunning atomic.Bool
	expiryRunning       atomic.Bool
	escalationRunning   atomic.Bool
}

// New constructs a Scheduler; call Start to begin sweeping.
func New(db *gorm.DB, matcher *services.MatchService, cfg Config) *Scheduler {
	if cfg.SlotPageSize <= 0 {
		cfg.SlotPageSize = 100
	}
	if cfg.EscalationPageSize <= 0 {
		cfg.EscalationPageSize = 100
	}
	return &Scheduler{
		db:      db,
		matcher: matcher,
		cfg:     cfg,
		cron:    cron.New(),
		logger:  log.With().Str("component", "sweeps").Logger(),
	}
}

// Start registers the three sweeps at their configured cadences and launches
// the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every "+s.cfg.AvailabilityInterval.String(), func() {
		s.RunAvailabilitySweep(context.Background())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every "+s.cfg.ExpiryInterval.String(), func() {
		s.RunExpirySweep(context.Background())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every "+s.cfg.EscalationInterval.String(), func() {
		s.RunEscalationSweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().
		Dur("availability", s.cfg.AvailabilityInterval).
		Dur("expiry", s.cfg.ExpiryInterval).
		Dur("escalation", s.cfg.EscalationInterval).
		Msg("sweep scheduler started")
	return nil
}

// Stop halts the cron runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("sweep scheduler stopped")
}

// RunAvailabilitySweep scans a bounded page of free, future slots and offers
// each one to its best-matched waiting entry. This is the fallback path for
// slots freed by any mechanism that never called the release hook.
func (s *Scheduler) RunAvailabilitySweep(ctx context.Context) {
	if !s.availabilityRunning.CompareAndSwap(false, true) {
		sweepSkipped.WithLabelValues("availability").Inc()
		return
	}
	defer s.availabilityRunning.Store(false)

	slots, err := repo.ListFreeFutureSlots(ctx, s.db, time.Now().UTC(), s.cfg.SlotPageSize)
	if err != nil {
		sweepFailures.WithLabelValues("availability").Inc()
		s.logger.Error().Err(err).Msg("availability sweep: listing free slots failed")
		return
	}

	notified := 0
	for i := range slots {
		entryID, err := s.matcher.ProcessSlotRelease(ctx, slots[i].ID)
		if err != nil {
			sweepFailures.WithLabelValues("availability").Inc()
			s.logger.Error().Err(err).Str("slot_id", slots[i].ID).Msg("availability sweep: offer failed")
			continue
		}
		if entryID != "" {
			notified++
		}
	}

	sweepRuns.WithLabelValues("availability").Inc()
	s.logger.Info().Int("slots_scanned", len(slots)).Int("offers_sent", notified).Msg("availability sweep done")
}

// RunExpirySweep bulk-expires waiting entries whose overall expiry date has
// passed. Entries in any other status are untouched, which keeps repeated
// runs idempotent.
func (s *Scheduler) RunExpirySweep(ctx context.Context) {
	if !s.expiryRunning.CompareAndSwap(false, true) {
		sweepSkipped.WithLabelValues("expiry").Inc()
		return
	}
	defer s.expiryRunning.Store(false)

	n, err := repo.ExpireOverdueWaiting(ctx, s.db, time.Now().UTC())
	if err != nil {
		sweepFailures.WithLabelValues("expiry").Inc()
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	entriesExpired.Add(float64(n))
	sweepRuns.WithLabelValues("expiry").Inc()
	s.logger.Info().Int64("entries_expired", n).Msg("expiry sweep done")
}

// RunEscalationSweep expires notified entries whose response deadline lapsed,
// closes their pending offers, and hands each released slot back to the
// matcher so the next candidate gets a turn.
func (s *Scheduler) RunEscalationSweep(ctx context.Context) {
	if !s.escalationRunning.CompareAndSwap(false, true) {
		sweepSkipped.WithLabelValues("escalation").Inc()
		return
	}
	defer s.escalationRunning.Store(false)

	now := time.Now().UTC()
	stale, err := repo.ListNotifiedPastDeadline(ctx, s.db, now, s.cfg.EscalationPageSize)
	if err != nil {
		sweepFailures.WithLabelValues("escalation").Inc()
		s.logger.Error().Err(err).Msg("escalation sweep: listing lapsed offers failed")
		return
	}

	escalated := 0
	for i := range stale {
		e := &stale[i]
		moved, err := repo.MarkExpired(ctx, s.db, e.ID, domain.StatusNotified)
		if err != nil {
			sweepFailures.WithLabelValues("escalation").Inc()
			s.logger.Error().Err(err).Str("entry_id", e.ID).Msg("escalation sweep: expire failed")
			continue
		}
		if !moved {
			// Lost a race with a late respond call; that path already
			// released the slot.
			continue
		}
		entriesExpired.Inc()
		escalated++

		if e.NotifiedSlotID == nil {
			continue
		}
		slotID := *e.NotifiedSlotID
		if _, err := repo.CloseNotification(ctx, s.db, e.ID, slotID, domain.ResponseExpired, now); err != nil {
			s.logger.Error().Err(err).Str("entry_id", e.ID).Msg("escalation sweep: closing offer failed")
		}
		if _, err := s.matcher.ProcessNextInQueue(ctx, slotID); err != nil {
			sweepFailures.WithLabelValues("escalation").Inc()
			s.logger.Error().Err(err).Str("slot_id", slotID).Msg("escalation sweep: re-offer failed")
		}
	}

	sweepRuns.WithLabelValues("escalation").Inc()
	s.logger.Info().Int("offers_escalated", escalated).Msg("escalation sweep done")
}
