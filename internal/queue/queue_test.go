package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a controllable time source for queue tests.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEnqueueAndDeliver(t *testing.T) {
	var delivered []string
	q := New(func(ctx context.Context, job Job) error {
		delivered = append(delivered, job.Slug)
		return nil
	}, zerolog.Nop())
	clk := newClock()
	q.SetClock(clk.Now)

	q.Enqueue("bitcoin", 0)
	q.Enqueue("ethereum", 0)
	q.drain(context.Background())

	assert.Equal(t, []string{"bitcoin", "ethereum"}, delivered)
	assert.Equal(t, 0, q.Len())
}

func TestDelayedJobNotDeliveredEarly(t *testing.T) {
	var delivered int
	q := New(func(ctx context.Context, job Job) error {
		delivered++
		return nil
	}, zerolog.Nop())
	clk := newClock()
	q.SetClock(clk.Now)

	q.Enqueue("bitcoin", 1500*time.Millisecond)
	q.drain(context.Background())
	assert.Equal(t, 0, delivered)

	clk.Advance(2 * time.Second)
	q.drain(context.Background())
	assert.Equal(t, 1, delivered)
}

func TestJobsDeliveredInAvailabilityOrder(t *testing.T) {
	var delivered []string
	q := New(func(ctx context.Context, job Job) error {
		delivered = append(delivered, job.Slug)
		return nil
	}, zerolog.Nop())
	clk := newClock()
	q.SetClock(clk.Now)

	q.Enqueue("second", 2*time.Second)
	q.Enqueue("first", time.Second)

	clk.Advance(3 * time.Second)
	q.drain(context.Background())

	assert.Equal(t, []string{"first", "second"}, delivered)
}

func TestFailedJobRedeliveredAfterDelay(t *testing.T) {
	attempts := 0
	q := New(func(ctx context.Context, job Job) error {
		attempts++
		if attempts == 1 {
			return errors.New("upstream unavailable")
		}
		return nil
	}, zerolog.Nop())
	clk := newClock()
	q.SetClock(clk.Now)

	q.Enqueue("bitcoin", 0)
	q.drain(context.Background())
	assert.Equal(t, 1, attempts)
	require.Equal(t, 1, q.Len())

	// Not yet redelivered before the delay elapses
	clk.Advance(30 * time.Second)
	q.drain(context.Background())
	assert.Equal(t, 1, attempts)

	clk.Advance(31 * time.Second)
	q.drain(context.Background())
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 0, q.Len())
}

func TestJobDroppedAfterMaxDeliveries(t *testing.T) {
	attempts := 0
	q := New(func(ctx context.Context, job Job) error {
		attempts++
		return errors.New("still broken")
	}, zerolog.Nop())
	clk := newClock()
	q.SetClock(clk.Now)

	q.Enqueue("bitcoin", 0)

	for i := 0; i < MaxDeliveries+2; i++ {
		q.drain(context.Background())
		clk.Advance(RedeliveryDelay + time.Second)
	}

	assert.Equal(t, MaxDeliveries, attempts)
	assert.Equal(t, 0, q.Len())
}

func TestWorkersProcessJobsUntilStopped(t *testing.T) {
	done := make(chan string, 1)
	q := New(func(ctx context.Context, job Job) error {
		done <- job.Slug
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 2)

	q.Enqueue("bitcoin", 0)

	select {
	case slug := <-done:
		assert.Equal(t, "bitcoin", slug)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not delivered")
	}

	q.Stop()
}
