package jobx_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx/jobxmem"
)

func newClient(q jobx.Queue, opts ...jobx.WorkerOption) *jobx.Client {
	opts = append([]jobx.WorkerOption{
		jobx.WithQueues("parsing"),
		jobx.WithDequeueTimeout(10 * time.Millisecond),
		jobx.WithDefaultRetryDelay(0),
	}, opts...)
	return jobx.NewClient(q, opts...)
}

func mustProcess(t *testing.T, c *jobx.Client) {
	t.Helper()
	ok, err := c.ProcessNext(context.Background())
	if err != nil || !ok {
		t.Fatalf("ProcessNext = %v, %v", ok, err)
	}
}

func TestCompletedJobStoresResult(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q)
	c.Register("echo", func(_ context.Context, job *jobx.JobInfo) ([]byte, error) {
		return job.Payload, nil
	})

	id, err := c.Enqueue(context.Background(), jobx.Job{Type: "echo", Payload: json.RawMessage(`{"n":1}`)})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	mustProcess(t, c)

	info, err := c.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Status != jobx.JobStatusCompleted || string(info.Result) != `{"n":1}` || info.Attempts != 1 {
		t.Fatalf("job = %+v", info)
	}
	if info.Queue != "parsing" || info.MaxRetries != 2 {
		t.Fatalf("defaults not applied: queue=%s retries=%d", info.Queue, info.MaxRetries)
	}
}

func TestRetryableErrorsRetryUntilExhausted(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q, jobx.WithDefaultMaxRetries(1))
	runs := 0
	c.Register("flaky", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		runs++
		return nil, errx.External("provider down")
	})

	id, _ := c.Enqueue(context.Background(), jobx.Job{Type: "flaky"})
	mustProcess(t, c)
	if info, _ := c.GetJob(context.Background(), id); info.Status != jobx.JobStatusRetrying {
		t.Fatalf("after first run status = %s", info.Status)
	}
	mustProcess(t, c)

	info, _ := c.GetJob(context.Background(), id)
	if info.Status != jobx.JobStatusFailed || runs != 2 || info.Error == "" {
		t.Fatalf("status=%s runs=%d err=%q", info.Status, runs, info.Error)
	}
	if ok, _ := c.ProcessNext(context.Background()); ok {
		t.Fatal("exhausted job ran again")
	}
}

func TestNonRetryableErrorFailsImmediately(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q)
	c.Register("bad", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		return nil, errx.Validation("unsupported format")
	})

	id, _ := c.Enqueue(context.Background(), jobx.Job{Type: "bad"})
	mustProcess(t, c)
	if info, _ := c.GetJob(context.Background(), id); info.Status != jobx.JobStatusFailed {
		t.Fatalf("status = %s", info.Status)
	}
}

func TestPanicAndMissingHandlerFailJob(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q)
	c.Register("boom", func(context.Context, *jobx.JobInfo) ([]byte, error) { panic("nil map") })

	boom, _ := c.Enqueue(context.Background(), jobx.Job{Type: "boom"})
	orphan, _ := c.Enqueue(context.Background(), jobx.Job{Type: "unknown"})
	mustProcess(t, c)
	mustProcess(t, c)

	for _, id := range []string{boom, orphan} {
		info, _ := c.GetJob(context.Background(), id)
		if info.Status != jobx.JobStatusFailed {
			t.Fatalf("job %s status = %s", id, info.Status)
		}
	}
}

func TestDelayedJobsArePromoted(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q)
	c.Register("later", func(context.Context, *jobx.JobInfo) ([]byte, error) { return []byte(`"ok"`), nil })

	id, _ := c.EnqueueDelayed(context.Background(), jobx.Job{Type: "later"}, time.Millisecond)
	if ok, _ := c.ProcessNext(context.Background()); ok {
		t.Fatal("delayed job ran before promotion")
	}
	time.Sleep(5 * time.Millisecond)
	if err := q.PromoteScheduled(context.Background(), []string{"parsing"}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	mustProcess(t, c)
	if info, _ := c.GetJob(context.Background(), id); info.Status != jobx.JobStatusCompleted {
		t.Fatalf("status = %s", info.Status)
	}
}

func TestEnqueueValidationAndUnknownJob(t *testing.T) {
	c := newClient(jobxmem.New())
	if _, err := c.Enqueue(context.Background(), jobx.Job{}); !errx.HasCode(err, jobx.ErrInvalidJob) {
		t.Fatalf("err = %v", err)
	}
	if _, err := c.GetJob(context.Background(), "missing"); !errx.HasCode(err, jobx.ErrJobNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStartProcessesUntilCancelled(t *testing.T) {
	q := jobxmem.New()
	c := newClient(q, jobx.WithConcurrency(2), jobx.WithPollInterval(5*time.Millisecond))
	done := make(chan struct{}, 3)
	c.Register("work", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		done <- struct{}{}
		return nil, nil
	})
	for range 3 {
		if _, err := c.Enqueue(context.Background(), jobx.Job{Type: "work"}); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Start(ctx) }()

	for range 3 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs not processed")
		}
	}
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("start: %v", err)
	}
}
