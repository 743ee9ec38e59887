package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncJob(t *testing.T) {
	ran := false
	job := NewFuncJob("test_job", func() error {
		ran = true
		return nil
	})

	assert.Equal(t, "test_job", job.Name())
	require.NoError(t, job.Run())
	assert.True(t, ran)
}

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", NewFuncJob("bad", func() error { return nil }))
	assert.Error(t, err)
}

func TestRunNowExecutesImmediately(t *testing.T) {
	s := New(zerolog.Nop())

	wantErr := errors.New("job error")
	err := s.RunNow(NewFuncJob("failing", func() error { return wantErr }))
	assert.ErrorIs(t, err, wantErr)
}

func TestNonOverlappingSkipsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	inner := NewFuncJob("slow_import", func() error {
		close(started)
		<-release
		return nil
	})
	guarded := NewNonOverlapping(inner, zerolog.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = guarded.Run()
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}

	// Second trigger while the first run holds the lock is a no-op
	require.NoError(t, guarded.Run())

	close(release)
	wg.Wait()
}

func TestNonOverlappingRunsSequentially(t *testing.T) {
	runs := 0
	guarded := NewNonOverlapping(NewFuncJob("import", func() error {
		runs++
		return nil
	}), zerolog.Nop())

	require.NoError(t, guarded.Run())
	require.NoError(t, guarded.Run())
	assert.Equal(t, 2, runs)
}

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	s := New(zerolog.Nop())

	ran := make(chan struct{}, 1)
	err := s.AddJob("@every 1s", NewFuncJob("tick", func() error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job never ran")
	}
}
