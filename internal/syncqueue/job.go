package syncqueue

import "context"

// Job is a unit of remote sync work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to a Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Finisher is implemented by jobs that want to learn their final outcome once
// retries are exhausted. err is nil on success.
type Finisher interface {
	Finish(err error)
}

type finishingJob struct {
	Job
	finish func(error)
}

func (j finishingJob) Finish(err error) { j.finish(err) }

// WithFinish attaches an outcome callback to job.
func WithFinish(job Job, finish func(err error)) Job {
	return finishingJob{Job: job, finish: finish}
}
