package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// DefaultRefreshInterval is used when the configured interval is not positive.
const DefaultRefreshInterval = 30 * time.Minute

// Scheduler runs the refresh job on a fixed interval. The first run starts
// immediately; overlapping runs are skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       *RefreshJob
	interval  time.Duration
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job *RefreshJob, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		job:       job,
		interval:  interval,
		logger:    logger,
	}
}

// Interval returns the effective refresh interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the refresh job and starts the scheduler. Runs use ctx, so
// cancelling it aborts an in-flight refresh.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.logger.Debug().Msg("scheduled refresh triggered")
		s.job.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Msg("refresh scheduler started")
	return nil
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler. Future runs are cancelled.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
