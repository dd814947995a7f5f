// Package asyncx holds the small concurrency helpers the pipeline is built on:
// a bounded, deadline-aware settle pool, fixed-delay retries and a
// cancellable sleep.
package asyncx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the settled outcome of one item.
type Result[T any] struct {
	Value T
	Err   error
	// Done is false when the item had not finished before the context ended.
	Done bool
}

func (r Result[T]) OK() bool { return r.Done && r.Err == nil }

// Settle runs fn for every item with at most limit in flight and returns one
// Result per item in input order. It never fails fast: each item settles
// independently.
//
// Settle returns as soon as ctx is done even if some fn calls are still
// running; those items are reported with Done=false and ctx.Err(), and their
// late results are discarded.
func Settle[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = 1
	}

	var (
		mu       sync.Mutex
		closed   bool
		results  = make([]Result[R], len(items))
		finished = make(chan struct{})
	)

	g := new(errgroup.Group)
	g.SetLimit(limit)

	go func() {
		defer close(finished)
		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				v, err := fn(ctx, item)
				mu.Lock()
				if !closed {
					results[i] = Result[R]{Value: v, Err: err, Done: true}
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	closed = true
	out := make([]Result[R], len(results))
	for i, r := range results {
		if !r.Done {
			r.Err = ctx.Err()
			if r.Err == nil {
				r.Err = context.Canceled
			}
		}
		out[i] = r
	}
	return out
}

// Serial is Settle with a single worker running on the caller's goroutine.
func Serial[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			out[i] = Result[R]{Err: err}
			continue
		}
		v, err := fn(ctx, item)
		out[i] = Result[R]{Value: v, Err: err, Done: true}
	}
	return out
}

// Retry calls fn up to attempts times with a fixed delay between attempts.
// It stops early when fn succeeds, when shouldRetry reports false for the
// error, or when ctx ends. The last error is returned.
func Retry[T any](
	ctx context.Context,
	attempts int,
	delay time.Duration,
	shouldRetry func(error) bool,
	fn func(ctx context.Context, attempt int) (T, error),
) (T, error) {
	var (
		zero T
		err  error
	)
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		var v T
		v, err = fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return zero, err
		}
		if attempt < attempts {
			if serr := Sleep(ctx, delay); serr != nil {
				return zero, err
			}
		}
	}
	return zero, err
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in that case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
