package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/metrics"
	"github.com/crewdeck/crewdeck/internal/identity/store"
)

// resolvedInviteRetention keeps terminal invites around long enough for
// support queries before the sweeper drops them.
const resolvedInviteRetention = 30 * 24 * time.Hour

// HousekeepingService periodically sweeps out expired otp challenges,
// recovery tokens, dead sessions, and stale invites. The sweep is purely
// opportunistic; every read path applies expiry itself, so nothing is ever
// wrong between runs, just larger.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep performs one cleanup pass. Each deletion is independent; a failure
// in one table does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := s.Store.OtpChallenges().DeleteExpiredBefore(ctx, now); err != nil {
		s.Logger.Error("failed to sweep otp challenges", "error", err)
	} else if n > 0 {
		metrics.HousekeepingDeletedTotal.WithLabelValues("otp_challenges").Add(float64(n))
		s.Logger.Debug("swept otp challenges", "deleted", n)
	}

	if n, err := s.Store.RecoveryTokens().DeleteExpiredBefore(ctx, now); err != nil {
		s.Logger.Error("failed to sweep recovery tokens", "error", err)
	} else if n > 0 {
		metrics.HousekeepingDeletedTotal.WithLabelValues("recovery_tokens").Add(float64(n))
		s.Logger.Debug("swept recovery tokens", "deleted", n)
	}

	if n, err := s.Store.Sessions().DeleteDeadBefore(ctx, now); err != nil {
		s.Logger.Error("failed to sweep sessions", "error", err)
	} else if n > 0 {
		metrics.HousekeepingDeletedTotal.WithLabelValues("sessions").Add(float64(n))
		s.Logger.Debug("swept sessions", "deleted", n)
	}

	if n, err := s.Store.Invites().ExpireOverdue(ctx, now); err != nil {
		s.Logger.Error("failed to expire invites", "error", err)
	} else if n > 0 {
		s.Logger.Debug("expired overdue invites", "count", n)
	}

	if n, err := s.Store.Invites().DeleteResolvedBefore(ctx, now.Add(-resolvedInviteRetention)); err != nil {
		s.Logger.Error("failed to sweep resolved invites", "error", err)
	} else if n > 0 {
		metrics.HousekeepingDeletedTotal.WithLabelValues("invites").Add(float64(n))
		s.Logger.Debug("swept resolved invites", "deleted", n)
	}
}
