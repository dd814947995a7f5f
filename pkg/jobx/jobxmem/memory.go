// Package jobxmem is an in-process jobx.Queue for single-node deployments
// and tests. Jobs do not survive a restart.
package jobxmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/hybridparse/pkg/jobx"
)

type scheduled struct {
	id    string
	queue string
	at    time.Time
}

type Queue struct {
	mu        sync.Mutex
	jobs      map[string]*jobx.JobInfo
	ready     map[string][]string
	scheduled []scheduled
	// wake is closed and replaced whenever a job becomes ready.
	wake chan struct{}
	now  func() time.Time
}

var _ jobx.Queue = (*Queue)(nil)

func New() *Queue {
	return &Queue{
		jobs:  make(map[string]*jobx.JobInfo),
		ready: make(map[string][]string),
		wake:  make(chan struct{}),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}

func (q *Queue) Enqueue(_ context.Context, job jobx.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.jobs[id] = jobx.NewJobInfo(id, job, q.now())
	q.ready[job.Queue] = append(q.ready[job.Queue], id)
	q.signal()
	return id, nil
}

func (q *Queue) EnqueueDelayed(_ context.Context, job jobx.Job, delay time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	now := q.now()
	q.jobs[id] = jobx.NewJobInfo(id, job, now)
	q.scheduled = append(q.scheduled, scheduled{id: id, queue: job.Queue, at: now.Add(delay)})
	return id, nil
}

func (q *Queue) GetJob(_ context.Context, jobID string) (*jobx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return nil, jobx.ErrRegistry.New(jobx.ErrJobNotFound).WithDetail("job_id", jobID)
	}
	cp := *info
	return &cp, nil
}

func (q *Queue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		for _, name := range queues {
			ids := q.ready[name]
			if len(ids) == 0 {
				continue
			}
			id := ids[0]
			q.ready[name] = ids[1:]
			info := q.jobs[id]
			info.Status = jobx.JobStatusActive
			info.Attempts++
			info.UpdatedAt = q.now()
			cp := *info
			q.mu.Unlock()
			return &cp, nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, nil
		case <-timer.C:
			return nil, nil
		case <-wake:
		}
	}
}

func (q *Queue) update(jobID string, fn func(*jobx.JobInfo)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.ErrRegistry.New(jobx.ErrJobNotFound).WithDetail("job_id", jobID)
	}
	fn(info)
	info.UpdatedAt = q.now()
	return nil
}

func (q *Queue) Complete(_ context.Context, jobID string, result []byte) error {
	return q.update(jobID, func(info *jobx.JobInfo) {
		info.Status = jobx.JobStatusCompleted
		info.Result = result
		info.Error = ""
	})
}

func (q *Queue) Fail(_ context.Context, jobID string, errMsg string, retryable bool) (bool, error) {
	var retry bool
	err := q.update(jobID, func(info *jobx.JobInfo) {
		retry = retryable && info.CanRetry()
		info.Error = errMsg
		info.Status = jobx.JobStatusFailed
		if retry {
			info.Status = jobx.JobStatusRetrying
		}
	})
	return retry, err
}

func (q *Queue) Retry(_ context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.ErrRegistry.New(jobx.ErrJobNotFound).WithDetail("job_id", jobID)
	}
	if delay <= 0 {
		q.ready[info.Queue] = append(q.ready[info.Queue], jobID)
		q.signal()
		return nil
	}
	q.scheduled = append(q.scheduled, scheduled{id: jobID, queue: info.Queue, at: q.now().Add(delay)})
	return nil
}

func (q *Queue) PromoteScheduled(_ context.Context, queues []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	watched := make(map[string]bool, len(queues))
	for _, name := range queues {
		watched[name] = true
	}

	now := q.now()
	kept := q.scheduled[:0]
	promoted := false
	for _, s := range q.scheduled {
		if watched[s.queue] && !s.at.After(now) {
			q.ready[s.queue] = append(q.ready[s.queue], s.id)
			promoted = true
			continue
		}
		kept = append(kept, s)
	}
	q.scheduled = kept
	if promoted {
		q.signal()
	}
	return nil
}
