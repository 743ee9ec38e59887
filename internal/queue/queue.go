// Package queue implements a small in-process delayed job queue used to
// spread metadata fetches out over time. Jobs carry a slug, become available
// at a scheduled instant, and are redelivered on failure up to a cap.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// MaxDeliveries is how many times a job is attempted before it is dropped.
	MaxDeliveries = 3

	// RedeliveryDelay is how long a failed job waits before its next attempt.
	RedeliveryDelay = 60 * time.Second

	// pollInterval bounds how late a due job can start when the queue is idle.
	pollInterval = 500 * time.Millisecond
)

// Job is one unit of deferred work.
type Job struct {
	ID          string
	Slug        string
	Deliveries  int
	AvailableAt time.Time
}

// Handler executes a job. A non-nil error schedules redelivery.
type Handler func(ctx context.Context, job Job) error

// Queue is a delayed job queue drained by a fixed pool of workers.
type Queue struct {
	handler Handler
	log     zerolog.Logger
	now     func() time.Time

	mu   sync.Mutex
	jobs []Job

	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a queue that runs jobs through the given handler.
func New(handler Handler, log zerolog.Logger) *Queue {
	return &Queue{
		handler: handler,
		log:     log.With().Str("component", "queue").Logger(),
		now:     time.Now,
		jobs:    make([]Job, 0),
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// SetClock overrides the queue clock. Used by tests.
func (q *Queue) SetClock(now func() time.Time) {
	q.now = now
}

// Enqueue schedules a job to become available after delay.
func (q *Queue) Enqueue(slug string, delay time.Duration) string {
	job := Job{
		ID:          uuid.New().String(),
		Slug:        slug,
		AvailableAt: q.now().Add(delay),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.wake()
	return job.ID
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Start launches a fixed pool of worker goroutines. Each worker picks jobs in
// availability order; a failed job goes back on the queue with its delivery
// count bumped until it exceeds MaxDeliveries. Blocking backoff sleeps inside
// the handler only ever stall a worker, never a caller.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.run(ctx)
		}()
	}
}

func (q *Queue) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		case <-q.trigger:
			q.drain(ctx)
		case <-ticker.C:
			q.drain(ctx)
		}
	}
}

// Stop stops all workers and waits for them to exit.
func (q *Queue) Stop() {
	close(q.stop)
	q.wg.Wait()
}

func (q *Queue) wake() {
	select {
	case q.trigger <- struct{}{}:
	default:
	}
}

// drain runs every currently-due job.
func (q *Queue) drain(ctx context.Context) {
	for {
		job, ok := q.popDue()
		if !ok {
			return
		}
		q.deliver(ctx, job)

		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// popDue removes and returns the earliest available job, if any is due.
func (q *Queue) popDue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	best := -1
	for i, job := range q.jobs {
		if job.AvailableAt.After(now) {
			continue
		}
		if best == -1 || job.AvailableAt.Before(q.jobs[best].AvailableAt) {
			best = i
		}
	}
	if best == -1 {
		return Job{}, false
	}

	job := q.jobs[best]
	q.jobs = append(q.jobs[:best], q.jobs[best+1:]...)
	return job, true
}

func (q *Queue) deliver(ctx context.Context, job Job) {
	job.Deliveries++

	err := q.handler(ctx, job)
	if err == nil {
		q.log.Debug().Str("job_id", job.ID).Str("slug", job.Slug).Msg("Job completed")
		return
	}

	if job.Deliveries >= MaxDeliveries {
		q.log.Error().Err(err).
			Str("job_id", job.ID).
			Str("slug", job.Slug).
			Int("deliveries", job.Deliveries).
			Msg("Job failed permanently")
		return
	}

	job.AvailableAt = q.now().Add(RedeliveryDelay)

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.log.Warn().Err(err).
		Str("job_id", job.ID).
		Str("slug", job.Slug).
		Int("deliveries", job.Deliveries).
		Msg("Job failed, scheduled for redelivery")
}
