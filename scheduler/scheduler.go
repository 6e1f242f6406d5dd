package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/config"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Cycle identifies one run of the job.
type Cycle struct {
	ID      string
	Started time.Time
}

// Job is the work done every cycle.
type Job func(ctx context.Context, cycle Cycle) error

// Scheduler runs a job immediately and then at every firing of its schedule,
// one cycle at a time, until its context is cancelled.
type Scheduler struct {
	schedule cron.Schedule
	job      Job

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(schedule cron.Schedule, job Job) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		job:      job,
		Now:      time.Now,
		Sleep:    sleepContext,
	}
}

// NewSchedule returns the cron schedule from cfg when one is set, otherwise
// a fixed delay of cfg.Interval between cycles.
func NewSchedule(cfg *config.Config) (cron.Schedule, error) {
	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("scheduler parse %q: %w", cfg.Schedule, err)
		}
		return sched, nil
	}
	return Every(cfg.Interval), nil
}

// FixedDelay fires a constant duration after the previous cycle ended.
// Unlike cron.Every it keeps sub-second precision.
type FixedDelay time.Duration

func Every(d time.Duration) FixedDelay {
	return FixedDelay(d)
}

func (d FixedDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// Run blocks until ctx is cancelled. A failing cycle is logged and does not
// stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.runCycle(ctx)

		now := s.Now()
		next := s.schedule.Next(now)
		log.Info().Time("next", next).Dur("sleep", next.Sub(now)).Msg("Log processing complete, sleeping")
		if err := s.Sleep(ctx, next.Sub(now)); err != nil {
			log.Info().Msg("Scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycle := Cycle{ID: uuid.NewString(), Started: s.Now()}
	logger := log.With().Str("cycle", cycle.ID).Logger()
	logger.Info().Msg("Cycle started")

	if err := s.job(ctx, cycle); err != nil {
		logger.Error().Err(err).Dur("elapsed", s.Now().Sub(cycle.Started)).Msg("Cycle failed")
		return
	}
	logger.Info().Dur("elapsed", s.Now().Sub(cycle.Started)).Msg("Cycle finished")
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
