package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs SweepExpired on a cron schedule such as "@every 1h".
type Sweeper struct {
	cache  Cache
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper validates schedule and registers the sweep job. Call Start to
// begin running it.
func NewSweeper(c Cache, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		cache:  c,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever
// finishes first.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Run starts the schedule and stops it when ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop(context.Background())
	return nil
}

func (s *Sweeper) sweep() {
	removed, err := s.cache.SweepExpired(context.Background())
	if err != nil {
		s.logger.Warn("cache sweep failed", "error", err, "removed", removed)
		return
	}
	if removed > 0 {
		s.logger.Info("cache sweep removed expired entries", "removed", removed, "remaining", s.cache.Len())
	}
}
