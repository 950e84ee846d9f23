package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
)

// HousekeepingService periodically evicts expired entries from caches that
// cannot expire keys on their own (the in-memory driver). Backends with
// native TTLs, such as Redis, need no sweeping and are simply not listed.
type HousekeepingService struct {
	Sweepers []cache.Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(logger *slog.Logger, interval time.Duration, sweepers ...cache.Sweeper) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Sweepers: sweepers,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "sweepers", len(s.Sweepers))
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one eviction pass over every sweeper and returns the number of
// entries removed. A failing sweeper does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) int {
	total := 0
	for _, sw := range s.Sweepers {
		n, err := sw.DeleteExpired(ctx)
		if err != nil {
			s.Logger.Error("failed to delete expired cache entries", "error", err)
			continue
		}
		total += n
	}

	if total > 0 {
		s.Logger.Debug("housekeeping sweep completed", "deleted", total)
	}
	return total
}
