// Package jobxredis is a Redis-backed jobx.Queue. Ready jobs live in lists,
// delayed and retried jobs in a sorted set scored by due time, and each job
// record in its own key. Finished jobs expire after the retention period.
package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx"
)

type RedisQueue struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

var _ jobx.Queue = (*RedisQueue)(nil)

type Option func(*RedisQueue)

func WithPrefix(prefix string) Option {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

// WithRetention keeps completed and failed jobs readable for d.
func WithRetention(d time.Duration) Option {
	return func(q *RedisQueue) { q.retention = d }
}

func NewRedisQueue(rdb *redis.Client, opts ...Option) *RedisQueue {
	q := &RedisQueue{rdb: rdb, prefix: "jobx", retention: 24 * time.Hour}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) queueKey(name string) string     { return q.prefix + ":queue:" + name }
func (q *RedisQueue) scheduledKey(name string) string { return q.prefix + ":scheduled:" + name }
func (q *RedisQueue) jobKey(id string) string         { return q.prefix + ":job:" + id }

func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(jobx.NewJobInfo(id, job, time.Now().UTC()))
	if err != nil {
		return "", ErrRegistry.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(id), data, 0)
	pipe.LPush(ctx, q.queueKey(job.Queue), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", ErrRegistry.NewWithCause(ErrEnqueue, err).WithDetail("queue", job.Queue)
	}
	return id, nil
}

func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	data, err := json.Marshal(jobx.NewJobInfo(id, job, now))
	if err != nil {
		return "", ErrRegistry.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(id), data, 0)
	pipe.ZAdd(ctx, q.scheduledKey(job.Queue), redis.Z{Score: float64(now.Add(delay).Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", ErrRegistry.NewWithCause(ErrEnqueue, err).
			WithDetail("queue", job.Queue).
			WithDetail("delay", delay.String())
	}
	return id, nil
}

func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, q.jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, jobx.ErrRegistry.New(jobx.ErrJobNotFound).WithDetail("job_id", jobID)
		}
		return nil, ErrRegistry.NewWithCause(ErrGetJob, err).WithDetail("job_id", jobID)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, ErrRegistry.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}
	return &info, nil
}

func (q *RedisQueue) save(ctx context.Context, info *jobx.JobInfo, code *errx.ErrorCode) error {
	info.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(info)
	if err != nil {
		return ErrRegistry.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}
	ttl := time.Duration(0)
	if info.Status.Terminal() {
		ttl = q.retention
	}
	if err := q.rdb.Set(ctx, q.jobKey(info.ID), data, ttl).Err(); err != nil {
		return ErrRegistry.NewWithCause(code, err).WithDetail("job_id", info.ID)
	}
	return nil
}

// Dequeue pops from the first non-empty queue, blocking up to timeout.
func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = q.queueKey(name)
	}

	res, err := q.rdb.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, ErrRegistry.NewWithCause(ErrDequeue, err)
	}

	// res[0] is the list key, res[1] the job id.
	info, err := q.GetJob(ctx, res[1])
	if err != nil {
		return nil, err
	}
	info.Status = jobx.JobStatusActive
	info.Attempts++
	if err := q.save(ctx, info, ErrDequeue); err != nil {
		return nil, err
	}
	return info, nil
}

func (q *RedisQueue) Complete(ctx context.Context, jobID string, result []byte) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	info.Status = jobx.JobStatusCompleted
	info.Result = result
	info.Error = ""
	return q.save(ctx, info, ErrUpdate)
}

func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string, retryable bool) (bool, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	retry := retryable && info.CanRetry()
	info.Status = jobx.JobStatusFailed
	if retry {
		info.Status = jobx.JobStatusRetrying
	}
	info.Error = errMsg
	if err := q.save(ctx, info, ErrUpdate); err != nil {
		return false, err
	}
	return retry, nil
}

func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	score := float64(time.Now().UTC().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, q.scheduledKey(info.Queue), redis.Z{Score: score, Member: jobID}).Err(); err != nil {
		return ErrRegistry.NewWithCause(ErrRetry, err).WithDetail("job_id", jobID)
	}
	return nil
}

// promoteScript moves due ids from the scheduled set to the ready list
// atomically.
var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
    redis.call('LPUSH', KEYS[2], id)
end
if #ids > 0 then
    redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return #ids
`)

func (q *RedisQueue) PromoteScheduled(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	for _, name := range queues {
		err := promoteScript.Run(ctx, q.rdb, []string{q.scheduledKey(name), q.queueKey(name)}, now).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return ErrRegistry.NewWithCause(ErrPromote, err).WithDetail("queue", name)
		}
	}
	return nil
}
