package parsecache

import (
	"context"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
)

// Cache applies expiry on top of a Store and exposes progress and
// maintenance operations.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL. A non-positive ttl disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Begin prepares the state for a parse of totalPages pages, discarding an
// expired state first.
func (c *Cache) Begin(ctx context.Context, fingerprint string, totalPages int) error {
	if _, err := c.State(ctx, fingerprint); err != nil {
		return err
	}
	if err := c.store.Begin(ctx, fingerprint, totalPages, c.now()); err != nil {
		return storeErr(err, fingerprint)
	}
	return nil
}

// State returns the live state or nil when absent or expired. Expired
// states are deleted on sight.
func (c *Cache) State(ctx context.Context, fingerprint string) (*State, error) {
	s, err := c.store.Load(ctx, fingerprint)
	if err != nil {
		return nil, storeErr(err, fingerprint)
	}
	if s == nil {
		return nil, nil
	}
	if s.Expired(c.now(), c.ttl) {
		logx.WithField("fingerprint", fingerprint).Debug("parse cache state expired")
		if err := c.store.Delete(ctx, fingerprint); err != nil {
			return nil, storeErr(err, fingerprint)
		}
		return nil, nil
	}
	return s, nil
}

// Successes returns cached pages keyed by page number.
func (c *Cache) Successes(ctx context.Context, fingerprint string) (map[int]ocr.Page, error) {
	s, err := c.State(ctx, fingerprint)
	if err != nil || s == nil {
		return map[int]ocr.Page{}, err
	}
	return s.Successes, nil
}

func (c *Cache) RecordSuccess(ctx context.Context, fingerprint string, page ocr.Page) error {
	if err := c.store.SaveSuccess(ctx, fingerprint, page, c.now()); err != nil {
		return storeErr(err, fingerprint).WithDetail("page", page.PageNo)
	}
	return nil
}

// RecordFailure stores cause for pageNo unless the page already succeeded.
// The returned info carries the incremented retry count.
func (c *Cache) RecordFailure(ctx context.Context, fingerprint string, pageNo int, cause error) (FailureInfo, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	info, err := c.store.SaveFailure(ctx, fingerprint, pageNo, msg, c.now())
	if err != nil {
		return FailureInfo{}, storeErr(err, fingerprint).WithDetail("page", pageNo)
	}
	return info, nil
}

// FailedPages lists pages whose last attempt failed.
func (c *Cache) FailedPages(ctx context.Context, fingerprint string) ([]int, error) {
	s, err := c.State(ctx, fingerprint)
	if err != nil || s == nil {
		return nil, err
	}
	return s.FailedPages(), nil
}

// PendingPages lists pages in 1..totalPages without a cached success.
func (c *Cache) PendingPages(ctx context.Context, fingerprint string, totalPages int) ([]int, error) {
	s, err := c.State(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = NewState(fingerprint, totalPages, c.now())
	}
	s.TotalPages = totalPages
	return s.PendingPages(), nil
}

// Progress summarises one document.
type Progress struct {
	Fingerprint  string        `json:"fingerprint"`
	TotalPages   int           `json:"total_pages"`
	SuccessPages []int         `json:"success_pages"`
	FailedPages  []int         `json:"failed_pages"`
	PendingPages []int         `json:"pending_pages"`
	Complete     bool          `json:"complete"`
	Percent      float64       `json:"percent"`
	Age          time.Duration `json:"age"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (p Progress) String() string {
	return fmtProgress(p)
}

// Progress returns ErrNotFound when nothing is cached for fingerprint.
func (c *Cache) Progress(ctx context.Context, fingerprint string) (Progress, error) {
	s, err := c.State(ctx, fingerprint)
	if err != nil {
		return Progress{}, err
	}
	if s == nil {
		return Progress{}, ErrRegistry.New(ErrNotFound).WithDetail("fingerprint", fingerprint)
	}
	p := Progress{
		Fingerprint:  fingerprint,
		TotalPages:   s.TotalPages,
		SuccessPages: s.SuccessPages(),
		FailedPages:  s.FailedPages(),
		PendingPages: s.PendingPages(),
		Complete:     s.Complete(),
		Age:          c.now().Sub(s.CreatedAt),
		UpdatedAt:    s.UpdatedAt,
	}
	if s.TotalPages > 0 {
		p.Percent = float64(len(p.SuccessPages)) * 100 / float64(s.TotalPages)
	}
	return p, nil
}

func (c *Cache) Clear(ctx context.Context, fingerprint string) error {
	if err := c.store.Delete(ctx, fingerprint); err != nil {
		return storeErr(err, fingerprint)
	}
	return nil
}

// Cleanup deletes expired states and returns how many were removed.
func (c *Cache) Cleanup(ctx context.Context) (int, error) {
	fps, err := c.store.Fingerprints(ctx)
	if err != nil {
		return 0, storeErr(err, "")
	}
	removed := 0
	now := c.now()
	for _, fp := range fps {
		s, err := c.store.Load(ctx, fp)
		if err != nil {
			return removed, storeErr(err, fp)
		}
		if s == nil || !s.Expired(now, c.ttl) {
			continue
		}
		if err := c.store.Delete(ctx, fp); err != nil {
			return removed, storeErr(err, fp)
		}
		removed++
	}
	if removed > 0 {
		logx.WithField("removed", removed).Info("parse cache cleanup")
	}
	return removed, nil
}

type Stats struct {
	Documents         int `json:"documents"`
	CompleteDocuments int `json:"complete_documents"`
	ExpiredDocuments  int `json:"expired_documents"`
	CachedPages       int `json:"cached_pages"`
	FailedPages       int `json:"failed_pages"`
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	fps, err := c.store.Fingerprints(ctx)
	if err != nil {
		return Stats{}, storeErr(err, "")
	}
	var st Stats
	now := c.now()
	for _, fp := range fps {
		s, err := c.store.Load(ctx, fp)
		if err != nil {
			return Stats{}, storeErr(err, fp)
		}
		if s == nil {
			continue
		}
		st.Documents++
		if s.Expired(now, c.ttl) {
			st.ExpiredDocuments++
			continue
		}
		if s.Complete() {
			st.CompleteDocuments++
		}
		st.CachedPages += len(s.Successes)
		st.FailedPages += len(s.Failures)
	}
	return st, nil
}

func storeErr(err error, fingerprint string) *errx.Error {
	var e *errx.Error
	if errx.As(err, &e) && e.Code != "" {
		return e
	}
	out := ErrRegistry.NewWithCause(ErrStore, err)
	if fingerprint != "" {
		out = out.WithDetail("fingerprint", fingerprint)
	}
	return out
}
