// Package scheduler runs the periodic background jobs: the market data import,
// the expired cache sweep and the nightly backup.
package scheduler

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "@every 5m"   - Every 5 minutes
//   - "30 0 * * *"  - 00:30 daily
//   - "@hourly"     - Every hour
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// FuncJob adapts a plain function to the Job interface
type FuncJob struct {
	name string
	fn   func() error
}

// NewFuncJob creates a named job from a function
func NewFuncJob(name string, fn func() error) *FuncJob {
	return &FuncJob{name: name, fn: fn}
}

// Name returns the job name
func (j *FuncJob) Name() string { return j.name }

// Run executes the job function
func (j *FuncJob) Run() error { return j.fn() }

// NonOverlapping wraps a job so a trigger firing while a previous run is
// still in progress is skipped rather than queued. Imports can outlast their
// interval when the upstream is rate limiting.
type NonOverlapping struct {
	job Job
	log zerolog.Logger
	mu  sync.Mutex
}

// NewNonOverlapping wraps a job with the overlap guard
func NewNonOverlapping(job Job, log zerolog.Logger) *NonOverlapping {
	return &NonOverlapping{
		job: job,
		log: log.With().Str("component", "scheduler").Logger(),
	}
}

// Name returns the wrapped job's name
func (n *NonOverlapping) Name() string {
	return n.job.Name()
}

// Run executes the wrapped job unless a run is already in progress
func (n *NonOverlapping) Run() error {
	if !n.mu.TryLock() {
		n.log.Warn().Str("job", n.job.Name()).Msg("Previous run still in progress, skipping")
		return nil
	}
	defer n.mu.Unlock()

	return n.job.Run()
}
