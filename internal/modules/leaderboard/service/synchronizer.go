package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Synchronizer refreshes the leaderboard on a fixed interval. A slow refresh
// delays the next tick instead of queueing runs behind it.
type Synchronizer struct {
	cron     *cron.Cron
	service  LeaderboardService
	interval time.Duration
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewSynchronizer(service LeaderboardService, interval time.Duration) *Synchronizer {
	logger := cron.VerbosePrintfLogger(log.New(os.Stdout, "[Leaderboard][cron] ", log.LstdFlags))
	return &Synchronizer{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.DelayIfStillRunning(logger),
		)),
		service:  service,
		interval: interval,
		timeout:  interval,
	}
}

// Start runs one refresh right away and then schedules the periodic job.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.RunOnce()

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		s.cancel()
		return fmt.Errorf("schedule leaderboard refresh %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("📅 [Leaderboard] Refresh scheduled with cron: %s", spec)
	return nil
}

// RunOnce performs a single refresh. Failures are logged and never returned
// so the schedule keeps running.
func (s *Synchronizer) RunOnce() {
	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	started := time.Now()
	if err := s.service.Refresh(ctx); err != nil {
		log.Printf("❌ [Leaderboard] Refresh failed: %v", err)
		return
	}
	log.Printf("✅ [Leaderboard] Refreshed in %s", time.Since(started).Round(time.Millisecond))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Synchronizer) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("🛑 [Leaderboard] Refresh scheduler stopped")
}
