package jobxredis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/hybridparse/pkg/jobx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx/jobxredis"
)

// Runs only when JOBX_TEST_REDIS_ADDR points at a disposable server.
func TestRedisQueueLifecycle(t *testing.T) {
	addr := os.Getenv("JOBX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("JOBX_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	q := jobxredis.NewRedisQueue(rdb, jobxredis.WithPrefix("jobxtest:"+uuid.NewString()), jobxredis.WithRetention(time.Minute))
	id, err := q.Enqueue(ctx, jobx.Job{Type: "document.parse", Queue: "parsing", MaxRetries: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	info, err := q.Dequeue(ctx, []string{"parsing"}, time.Second)
	if err != nil || info == nil || info.ID != id || info.Attempts != 1 {
		t.Fatalf("dequeue = %+v, %v", info, err)
	}

	retry, err := q.Fail(ctx, id, "provider down", true)
	if err != nil || !retry {
		t.Fatalf("fail = %v, %v", retry, err)
	}
	if err := q.Retry(ctx, id, 0); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := q.PromoteScheduled(ctx, []string{"parsing"}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if info, err = q.Dequeue(ctx, []string{"parsing"}, time.Second); err != nil || info == nil {
		t.Fatalf("second dequeue = %+v, %v", info, err)
	}
	if err := q.Complete(ctx, id, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := q.GetJob(ctx, id)
	if err != nil || got.Status != jobx.JobStatusCompleted || got.Attempts != 2 {
		t.Fatalf("job = %+v, %v", got, err)
	}
}
