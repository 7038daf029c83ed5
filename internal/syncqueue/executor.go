// Package syncqueue runs best-effort remote sync jobs in the background.
// Jobs sharing a key (a user id) run in FIFO order; transient failures are
// retried with exponential backoff and permanent ones fail fast.
//
// Callers must not Submit concurrently for the same key if they rely on
// ordering.
package syncqueue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

type Config struct {
	Shards         int
	QueueSize      int
	EnqueueTimeout time.Duration
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxInterval    time.Duration

	// Retryable decides whether a failed attempt is worth repeating. Nil
	// retries every error.
	Retryable func(error) bool
	Logger    zerolog.Logger
}

type queuedJob struct {
	ctx context.Context
	job Job
}

// Executor executes Jobs on one worker goroutine per shard.
type Executor struct {
	cfg    Config
	queues []chan queuedJob

	done   chan struct{}
	closed uint32

	wg sync.WaitGroup
}

func NewExecutor(cfg Config) *Executor {
	if cfg.Shards <= 0 {
		cfg.Shards = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}

	e := &Executor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		e.queues[i] = ch
		e.wg.Add(1)
		go e.runWorker(i, ch)
	}
	return e
}

// Submit enqueues job on the shard for key. It returns ErrExecutorClosed after
// Stop, a *QueueFullError if the shard stays full past EnqueueTimeout, or
// ctx.Err() if ctx ends first.
func (e *Executor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&e.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-e.done:
		return ErrExecutorClosed
	default:
	}

	shard := e.shardFor(key)
	ch := e.queues[shard]

	timer := time.NewTimer(e.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		queueDepth.WithLabelValues(labelFor(shard)).Set(float64(len(ch)))
		return nil
	case <-e.done:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	}
}

// Barrier waits until every job submitted for key before the call has run.
func (e *Executor) Barrier(ctx context.Context, key string) error {
	reached := make(chan struct{})
	if err := e.Submit(ctx, key, JobFunc(func(context.Context) error {
		close(reached)
		return nil
	})); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reached:
		return nil
	}
}

// Stop drains queued jobs with a single attempt each and waits for the
// workers to exit. It is idempotent.
func (e *Executor) Stop() {
	if !atomic.CompareAndSwapUint32(&e.closed, 0, 1) {
		return
	}
	e.cfg.Logger.Debug().Int("shards", e.cfg.Shards).Msg("stopping sync executor")
	close(e.done)
	e.wg.Wait()
}

func (e *Executor) Close() error {
	e.Stop()
	return nil
}

func (e *Executor) runWorker(idx int, ch <-chan queuedJob) {
	defer e.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			e.execute(label, qj, e.cfg.MaxAttempts)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))
		case <-e.done:
			for {
				select {
				case qj := <-ch:
					e.execute(label, qj, 1)
				default:
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

func (e *Executor) execute(label string, qj queuedJob, maxAttempts int) {
	if qj.job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.cfg.Logger.Error().Interface("panic", r).Str("shard", label).Msg("sync job panicked")
			outcomesTotal.WithLabelValues("panic").Inc()
		}
	}()

	var err error
	if err = qj.ctx.Err(); err == nil {
		err = e.runWithRetry(label, qj, maxAttempts)
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		e.cfg.Logger.Warn().Err(err).Str("shard", label).Msg("sync job failed")
	}
	outcomesTotal.WithLabelValues(outcome).Inc()

	if f, ok := qj.job.(Finisher); ok {
		f.Finish(err)
	}
}

func (e *Executor) runWithRetry(label string, qj queuedJob, maxAttempts int) error {
	attempt := func(ctx context.Context) error {
		start := time.Now()
		err := qj.job.Run(ctx)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		return err
	}
	// Draining runs after done is closed, so it gets one attempt on the
	// caller's context.
	if maxAttempts <= 1 {
		return attempt(qj.ctx)
	}

	ctx, cancel := context.WithCancel(qj.ctx)
	defer cancel()
	go func() {
		select {
		case <-e.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = e.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = e.cfg.MaxInterval
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		err := attempt(ctx)
		if err != nil && e.cfg.Retryable != nil && !e.cfg.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (e *Executor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(e.cfg.Shards))
}
