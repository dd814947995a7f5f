// Package jobx runs background jobs over a pluggable queue backend. Handler
// results are stored on the job; handler errors are retried with a delay
// unless errx marks them non-retryable.
package jobx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// HandlerFunc processes a job and returns the result to store on it.
type HandlerFunc func(ctx context.Context, job *JobInfo) ([]byte, error)

type JobEnqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error)
}

type JobStatusReader interface {
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
}

// JobProcessor provides backend operations for the worker loop.
type JobProcessor interface {
	// Dequeue returns nil, nil when no job arrived within timeout.
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	// Fail records the error and reports whether the job should be retried.
	// A non-retryable failure is always terminal.
	Fail(ctx context.Context, jobID string, errMsg string, retryable bool) (retry bool, err error)
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	PromoteScheduled(ctx context.Context, queues []string) error
}

type Queue interface {
	JobEnqueuer
	JobStatusReader
	JobProcessor
}

type Client struct {
	queue    Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

func NewClient(queue Queue, options ...WorkerOption) *Client {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Client{
		queue:    queue,
		opts:     opts,
		handlers: make(map[string]HandlerFunc),
	}
}

func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

func (c *Client) normalize(job Job) (Job, error) {
	if job.Type == "" {
		return job, ErrRegistry.NewWithMessage(ErrInvalidJob, "job type is required")
	}
	if job.Queue == "" {
		job.Queue = c.opts.Queues[0]
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = c.opts.DefaultMaxRetries
	}
	return job, nil
}

func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	job, err := c.normalize(job)
	if err != nil {
		return "", err
	}
	return c.queue.Enqueue(ctx, job)
}

func (c *Client) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) (string, error) {
	job, err := c.normalize(job)
	if err != nil {
		return "", err
	}
	return c.queue.EnqueueDelayed(ctx, job, delay)
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// Start runs the workers and the scheduled-job promoter until ctx is
// cancelled, then waits up to the shutdown timeout for running jobs.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRegistry.New(ErrAlreadyRunning)
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logx.WithFields(logx.Fields{"workers": c.opts.Concurrency, "queues": c.opts.Queues}).Info("jobx: starting")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.schedulerLoop(ctx)
	}()
	for i := range c.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down workers")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("jobx: all workers stopped")
		return nil
	case <-time.After(c.opts.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out, some jobs may not have completed")
		return ErrRegistry.New(ErrShutdownTimeout)
	}
}

func (c *Client) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.queue.PromoteScheduled(ctx, c.opts.Queues); err != nil {
				if ctx.Err() != nil {
					return
				}
				logx.WithError(err).Warn("jobx: failed to promote scheduled jobs")
			}
		}
	}
}

func (c *Client) workerLoop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		if _, err := c.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).WithField("worker", id).Warn("jobx: dequeue error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.PollInterval):
			}
		}
	}
}

// ProcessNext dequeues and runs at most one job. It reports whether a job
// was processed; the error is a dequeue error only.
func (c *Client) ProcessNext(ctx context.Context) (bool, error) {
	job, err := c.queue.Dequeue(ctx, c.opts.Queues, c.opts.DequeueTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	c.processJob(ctx, job)
	return true, nil
}

func (c *Client) processJob(ctx context.Context, job *JobInfo) {
	log := logx.WithFields(logx.Fields{"job_id": job.ID, "job_type": job.Type, "attempt": job.Attempts})

	c.mu.RLock()
	handler, ok := c.handlers[job.Type]
	c.mu.RUnlock()
	if !ok {
		log.Warn("jobx: no handler registered")
		if _, err := c.queue.Fail(ctx, job.ID, ErrRegistry.New(ErrNoHandler).Error(), false); err != nil {
			log.WithError(err).Error("jobx: failed to mark job as failed")
		}
		return
	}

	result, err := c.run(ctx, handler, job)
	// Bookkeeping outlives a cancelled worker context.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		retryable := errx.IsRetryable(err)
		log.WithError(err).WithField("retryable", retryable).Warn("jobx: job failed")

		retry, failErr := c.queue.Fail(bg, job.ID, err.Error(), retryable)
		if failErr != nil {
			log.WithError(failErr).Error("jobx: failed to mark job as failed")
			return
		}
		if retry {
			if err := c.queue.Retry(bg, job.ID, c.opts.DefaultRetryDelay); err != nil {
				log.WithError(err).Error("jobx: failed to schedule retry")
			}
		}
		return
	}

	if err := c.queue.Complete(bg, job.ID, result); err != nil {
		log.WithError(err).Error("jobx: failed to complete job")
		return
	}
	log.Debug("jobx: job completed")
}

func (c *Client) run(ctx context.Context, handler HandlerFunc, job *JobInfo) (result []byte, err error) {
	if c.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = ErrRegistry.NewWithMessage(ErrHandlerPanic, fmt.Sprint(r)).NonRetryable()
		}
	}()
	return handler(ctx, job)
}
