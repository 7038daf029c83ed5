package syncqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("permanent")

func fastConfig() Config {
	return Config{
		Shards:      2,
		QueueSize:   8,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxInterval: 5 * time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, errPermanent) },
	}
}

func TestExecutor_FIFOPerKey(t *testing.T) {
	e := NewExecutor(fastConfig())
	defer e.Stop()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 5; i++ {
		v := i
		require.NoError(t, e.Submit(context.Background(), "user-1", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return nil
		})))
	}
	require.NoError(t, e.Barrier(context.Background(), "user-1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExecutor_RetriesRecoverable(t *testing.T) {
	e := NewExecutor(fastConfig())
	defer e.Stop()

	var attempts int32
	outcome := make(chan error, 1)
	job := WithFinish(JobFunc(func(context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("flaky")
		}
		return nil
	}), func(err error) { outcome <- err })

	require.NoError(t, e.Submit(context.Background(), "k", job))
	select {
	case err := <-outcome:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestExecutor_FailsFastOnPermanent(t *testing.T) {
	e := NewExecutor(fastConfig())
	defer e.Stop()

	var attempts int32
	outcome := make(chan error, 1)
	job := WithFinish(JobFunc(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errPermanent
	}), func(err error) { outcome <- err })

	require.NoError(t, e.Submit(context.Background(), "k", job))
	select {
	case err := <-outcome:
		assert.ErrorIs(t, err, errPermanent)
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	e := NewExecutor(fastConfig())
	defer e.Stop()

	var attempts int32
	outcome := make(chan error, 1)
	job := WithFinish(JobFunc(func(context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("down")
	}), func(err error) { outcome <- err })

	require.NoError(t, e.Submit(context.Background(), "k", job))
	select {
	case err := <-outcome:
		assert.EqualError(t, err, "down")
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestExecutor_QueueFull(t *testing.T) {
	cfg := fastConfig()
	cfg.Shards = 1
	cfg.QueueSize = 1
	cfg.EnqueueTimeout = 10 * time.Millisecond
	e := NewExecutor(cfg)
	defer e.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})))
	<-started

	require.NoError(t, e.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil })))
	err := e.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil }))
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
}

func TestExecutor_SubmitAfterStop(t *testing.T) {
	e := NewExecutor(fastConfig())
	e.Stop()
	e.Stop()

	err := e.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return nil }))
	assert.ErrorIs(t, err, ErrExecutorClosed)
}

func TestExecutor_CancelledJobIsSkipped(t *testing.T) {
	e := NewExecutor(fastConfig())
	defer e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int32
	outcome := make(chan error, 1)
	job := WithFinish(JobFunc(func(context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	}), func(err error) { outcome <- err })

	// Submit may observe the cancelled context itself; only check the job
	// did not run when it was accepted.
	if err := e.Submit(ctx, "k", job); err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		return
	}
	select {
	case err := <-outcome:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
}

func TestQueueFullError_Is(t *testing.T) {
	e := &QueueFullError{Shard: 1, Length: 4, Capacity: 4}
	assert.ErrorIs(t, e, ErrQueueFull)
	assert.NotErrorIs(t, e, ErrExecutorClosed)
	assert.Contains(t, e.Error(), "shard 1")
}
