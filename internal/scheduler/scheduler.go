// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"snakepill/internal/pkg/lock"
)

// Job is a named function run every Interval, first after InitialDelay.
type Job struct {
	Name         string
	Interval     time.Duration
	InitialDelay time.Duration
	Run          func(ctx context.Context) error
}

// Scheduler runs jobs until its context is cancelled.
type Scheduler struct {
	clock clockwork.Clock
	jobs  []Job
}

// New creates a Scheduler. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 {
		log.Warn().Str("job", job.Name).Msg("Job has no interval, not scheduled")
		return
	}
	s.jobs = append(s.jobs, job)
}

// Run starts every job and blocks until ctx is cancelled and all loops have
// returned. A run in progress finishes with a cancelled context.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")

	wg.Wait()
	log.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	log.Info().
		Str("job", job.Name).
		Dur("interval", job.Interval).
		Dur("initial_delay", job.InitialDelay).
		Msg("Scheduling job")

	if job.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(job.InitialDelay):
		}
	}
	s.safeRun(ctx, job)

	ticker := s.clock.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.safeRun(ctx, job)
		}
	}
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", job.Name).Interface("panic", r).Msg("Job panicked")
		}
	}()

	start := s.clock.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		log.Debug().Str("job", job.Name).Dur("duration", s.clock.Since(start)).Msg("Job finished")
	case errors.Is(err, lock.ErrAlreadyRunning):
		log.Warn().Str("job", job.Name).Msg("Previous run still in progress, skipping")
	case errors.Is(err, context.Canceled):
	default:
		log.Error().Err(err).Str("job", job.Name).Msg("Job failed")
	}
}
