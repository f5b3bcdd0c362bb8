package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("every now and then", &countingJob{})

	assert.Error(t, err)
	assert.Equal(t, 0, s.Jobs())
}

func TestAddJob_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("failures are logged, not fatal")}
	require.NoError(t, s.AddJob("@every 1s", job))
	assert.Equal(t, 1, s.Jobs())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	err := s.RunNow(context.Background(), job)

	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

type blockingJob struct {
	started chan struct{}
	stopped chan error
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(ctx context.Context) error {
	select {
	case j.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	j.stopped <- ctx.Err()
	return ctx.Err()
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{started: make(chan struct{}, 1), stopped: make(chan error, 1)}
	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()

	select {
	case <-job.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	s.Stop()

	assert.ErrorIs(t, <-job.stopped, context.Canceled)
}
