package jobx

import "time"

type WorkerOptions struct {
	Queues            []string
	Concurrency       int
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	DefaultMaxRetries int
	// JobTimeout bounds a single handler run. Zero means no limit.
	JobTimeout time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Queues:            []string{"default"},
		Concurrency:       2,
		PollInterval:      time.Second,
		ShutdownTimeout:   30 * time.Second,
		DequeueTimeout:    5 * time.Second,
		DefaultRetryDelay: 30 * time.Second,
		DefaultMaxRetries: 2,
	}
}

type WorkerOption func(*WorkerOptions)

func WithQueues(queues ...string) WorkerOption {
	return func(o *WorkerOptions) {
		if len(queues) > 0 {
			o.Queues = queues
		}
	}
}

func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the scheduled-job promotion interval and the idle
// wait after a dequeue error.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.ShutdownTimeout = d }
}

func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.DequeueTimeout = d }
}

func WithDefaultRetryDelay(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.DefaultRetryDelay = d }
}

func WithDefaultMaxRetries(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n >= 0 {
			o.DefaultMaxRetries = n
		}
	}
}

func WithJobTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) { o.JobTimeout = d }
}
