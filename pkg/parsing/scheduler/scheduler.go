// Package scheduler runs page-level OCR for one document in retry rounds
// over a bounded worker pool, resuming from the parse cache and bounding
// each round by an adaptive deadline.
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/asyncx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/pagetimeout"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
)

// Status of a finished run.
type Status string

const (
	StatusComplete Status = "COMPLETE"
	StatusPartial  Status = "PARTIAL"
)

// Recognizer is the OCR entry point, usually *ocr.Client.
type Recognizer interface {
	Available() bool
	Recognize(ctx context.Context, img ocr.Image, opts ...ocr.Option) (*ocr.Document, error)
}

type Config struct {
	// Retries is the number of rounds after the first; 0 runs a single round.
	Retries           int
	Parallelism       int
	PageTimeout       time.Duration
	MaxTotalTimeout   time.Duration
	TimeoutMultiplier float64
	TimeoutBuffer     time.Duration
	DynamicTimeout    bool
	// BackoffUnit is multiplied by round+1 between rounds.
	BackoffUnit time.Duration
}

func DefaultConfig() Config {
	return Config{
		Retries:           3,
		Parallelism:       4,
		PageTimeout:       60 * time.Second,
		MaxTotalTimeout:   time.Hour,
		TimeoutMultiplier: 3.0,
		TimeoutBuffer:     30 * time.Second,
		DynamicTimeout:    true,
		BackoffUnit:       2 * time.Second,
	}
}

// Page is one rendered page. No is the 1-based source page number.
type Page struct {
	No    int
	Image ocr.Image
}

type Batch struct {
	Fingerprint string
	Pages       []Page
}

// PageResult is the outcome of one page task. Exactly one of Page and Err
// is set.
type PageResult struct {
	PageNo    int
	Page      *ocr.Page
	ModelInfo string
	Err       error
	Elapsed   time.Duration
}

type Outcome struct {
	Pages        []ocr.Page
	Status       Status
	FailedPages  []int
	Rounds       int
	PageAttempts map[int]int
	// PendingPerRound is the pending count at the start of each round.
	PendingPerRound []int
	UsedCache       bool
	FromCache       bool
	ModelInfo       string
	Elapsed         time.Duration
}

type Scheduler struct {
	cfg      Config
	ocr      Recognizer
	cache    *parsecache.Cache
	timeouts *pagetimeout.Model
}

type Option func(*Scheduler)

// WithCache enables resume and progress tracking.
func WithCache(c *parsecache.Cache) Option {
	return func(s *Scheduler) { s.cache = c }
}

// WithTimeoutModel shares a timeout model across schedulers.
func WithTimeoutModel(m *pagetimeout.Model) Option {
	return func(s *Scheduler) { s.timeouts = m }
}

func New(cfg Config, rec Recognizer, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.Retries < 0 {
		cfg.Retries = def.Retries
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = def.PageTimeout
	}
	if cfg.MaxTotalTimeout <= 0 {
		cfg.MaxTotalTimeout = def.MaxTotalTimeout
	}
	if cfg.TimeoutMultiplier <= 0 {
		cfg.TimeoutMultiplier = 1
	}
	s := &Scheduler{cfg: cfg, ocr: rec}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeouts == nil {
		s.timeouts = pagetimeout.New()
	}
	return s
}

func (s *Scheduler) TimeoutModel() *pagetimeout.Model { return s.timeouts }

// Run recognises every page of b that is not already cached. Page failures
// never abort the run; they leave the outcome PARTIAL. Run returns an error
// when an uncached page has no image, when the caller cancels before any
// page exists, when no OCR provider is available, or when not a single page
// could be recognised.
func (s *Scheduler) Run(ctx context.Context, b Batch) (Outcome, error) {
	start := time.Now()
	out := Outcome{PageAttempts: make(map[int]int)}
	if len(b.Pages) == 0 {
		return out, ErrRegistry.New(ErrEmptyBatch)
	}
	log := logx.WithFields(logx.Fields{"fingerprint": b.Fingerprint, "pages": len(b.Pages)})

	cached := s.loadCached(ctx, b, log)
	done := make(map[int]ocr.Page, len(b.Pages))
	for _, p := range b.Pages {
		if page, ok := cached[p.No]; ok {
			done[p.No] = page
		}
	}
	out.UsedCache = len(done) > 0

	pending := s.pendingPages(b.Pages, done)
	if len(pending) == 0 {
		log.Info("all pages served from parse cache")
		out.FromCache = true
		return s.finish(out, b, done, start), nil
	}
	if missing := withoutImage(pending); len(missing) > 0 {
		// Cache entries expired after the batch was built from them.
		return out, ErrRegistry.New(ErrMissingImage).
			WithDetail("fingerprint", b.Fingerprint).
			WithDetail("pages", missing)
	}
	if err := ctx.Err(); err != nil {
		return out, ErrRegistry.NewWithCause(ErrCancelled, err)
	}
	if !s.ocr.Available() {
		return out, ocr.ErrRegistry.New(ocr.ErrNoProviderAvailable).NonRetryable()
	}

	for round := 0; round <= s.cfg.Retries && len(pending) > 0; round++ {
		if ctx.Err() != nil {
			break
		}
		out.Rounds++
		out.PendingPerRound = append(out.PendingPerRound, len(pending))
		for _, p := range pending {
			out.PageAttempts[p.No]++
		}

		results := s.runRound(ctx, b.Fingerprint, round, pending, log)
		for _, r := range results {
			if r.Page != nil {
				done[r.PageNo] = *r.Page
				if out.ModelInfo == "" {
					out.ModelInfo = r.ModelInfo
				}
			}
		}

		pending = s.pendingPages(b.Pages, done)
		if len(pending) > 0 && round < s.cfg.Retries {
			backoff := time.Duration(round+1) * s.cfg.BackoffUnit
			log.WithFields(logx.Fields{"round": round, "pending": len(pending), "backoff": backoff}).
				Warn("pages still pending, retrying")
			if err := asyncx.Sleep(ctx, backoff); err != nil {
				break
			}
		}
	}

	out = s.finish(out, b, done, start)
	if len(out.Pages) == 0 {
		if err := ctx.Err(); err != nil {
			return out, ErrRegistry.NewWithCause(ErrCancelled, err)
		}
		return out, ErrRegistry.New(ErrAllPagesFailed).
			WithDetail("fingerprint", b.Fingerprint).
			WithDetail("pages", len(b.Pages))
	}
	return out, nil
}

// RoundTimeout is min(maxTotal, ceil(pending/parallelism)*perPage*multiplier + buffer).
func (s *Scheduler) RoundTimeout(pending, parallelism int) time.Duration {
	if parallelism < 1 {
		parallelism = 1
	}
	perPage := s.cfg.PageTimeout
	if s.cfg.DynamicTimeout {
		perPage = s.timeouts.Timeout()
	}
	batches := (pending + parallelism - 1) / parallelism
	t := time.Duration(float64(time.Duration(batches)*perPage)*s.cfg.TimeoutMultiplier) + s.cfg.TimeoutBuffer
	return min(s.cfg.MaxTotalTimeout, t)
}

// parallelism never exceeds the configured bound; a slow timeout model
// may only lower it.
func (s *Scheduler) parallelism(pending int) int {
	p := s.cfg.Parallelism
	if s.cfg.DynamicTimeout {
		p = min(p, s.timeouts.SuggestedParallelism(p))
	}
	return max(1, min(p, pending))
}

func (s *Scheduler) runRound(ctx context.Context, fp string, round int, pending []Page, log *logx.Entry) []PageResult {
	effP := s.parallelism(len(pending))
	timeout := s.RoundTimeout(len(pending), effP)

	roundCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.WithFields(logx.Fields{
		"round":       round,
		"pending":     len(pending),
		"parallelism": effP,
		"timeout":     timeout,
	}).Info("starting OCR round")

	task := func(ctx context.Context, p Page) (PageResult, error) {
		return s.recognizePage(ctx, fp, p), nil
	}
	var settled []asyncx.Result[PageResult]
	if len(pending) <= 2 || s.cfg.Parallelism <= 1 {
		settled = asyncx.Serial(roundCtx, pending, task)
	} else {
		settled = asyncx.Settle(roundCtx, effP, pending, task)
	}

	results := make([]PageResult, len(pending))
	succeeded := 0
	for i, r := range settled {
		res := r.Value
		if !r.Done {
			res = PageResult{PageNo: pending[i].No, Err: fmt.Errorf("page %d did not finish within %s: %w", pending[i].No, timeout, r.Err)}
		}
		if res.Page == nil && res.Err == nil {
			res.Err = fmt.Errorf("page %d produced no result", pending[i].No)
		}
		results[i] = res

		if res.Page != nil {
			succeeded++
			continue
		}
		s.recordFailure(ctx, fp, res, round, log)
	}

	log.WithFields(logx.Fields{
		"round":     round,
		"succeeded": succeeded,
		"failed":    len(pending) - succeeded,
	}).Info("OCR round finished")
	return results
}

func (s *Scheduler) recognizePage(ctx context.Context, fp string, p Page) PageResult {
	start := time.Now()
	img := p.Image
	img.PageNo = p.No
	doc, err := s.ocr.Recognize(ctx, img)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		// Past the round deadline: whatever came back is discarded.
		return PageResult{PageNo: p.No, Err: ctx.Err(), Elapsed: elapsed}
	}
	if err == nil && (doc == nil || len(doc.Pages) == 0) {
		err = ocr.ErrRegistry.New(ocr.ErrEmptyResult).WithDetail("page", p.No)
	}
	if err != nil {
		return PageResult{PageNo: p.No, Err: err, Elapsed: elapsed}
	}

	page := Relabel(doc, p.No)
	s.timeouts.Record(elapsed)
	if s.cache != nil {
		if cerr := s.cache.RecordSuccess(context.WithoutCancel(ctx), fp, page); cerr != nil {
			logx.WithError(cerr).WithFields(logx.Fields{"fingerprint": fp, "page": p.No}).
				Warn("could not cache page result")
		}
	}
	return PageResult{PageNo: p.No, Page: &page, ModelInfo: doc.ModelInfo, Elapsed: elapsed}
}

func (s *Scheduler) recordFailure(ctx context.Context, fp string, r PageResult, round int, log *logx.Entry) {
	entry := log.WithError(r.Err).WithFields(logx.Fields{"page": r.PageNo, "round": round})
	if s.cache == nil {
		entry.Warn("page OCR failed")
		return
	}
	info, err := s.cache.RecordFailure(context.WithoutCancel(ctx), fp, r.PageNo, r.Err)
	if err != nil {
		entry.WithField("cache_error", err.Error()).Warn("page OCR failed and could not be cached")
		return
	}
	entry.WithField("retry_count", info.RetryCount).Warn("page OCR failed")
}

func (s *Scheduler) loadCached(ctx context.Context, b Batch, log *logx.Entry) map[int]ocr.Page {
	if s.cache == nil || b.Fingerprint == "" {
		return nil
	}
	if err := s.cache.Begin(ctx, b.Fingerprint, maxPageNo(b.Pages)); err != nil {
		log.WithError(err).Warn("parse cache unavailable, running without resume")
		return nil
	}
	pages, err := s.cache.Successes(ctx, b.Fingerprint)
	if err != nil {
		log.WithError(err).Warn("parse cache unavailable, running without resume")
		return nil
	}
	if len(pages) > 0 {
		log.WithField("cached", len(pages)).Info("resuming from parse cache")
	}
	return pages
}

func (s *Scheduler) pendingPages(pages []Page, done map[int]ocr.Page) []Page {
	var out []Page
	for _, p := range pages {
		if _, ok := done[p.No]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func withoutImage(pages []Page) []int {
	var out []int
	for _, p := range pages {
		if len(p.Image.Data) == 0 {
			out = append(out, p.No)
		}
	}
	return out
}

func (s *Scheduler) finish(out Outcome, b Batch, done map[int]ocr.Page, start time.Time) Outcome {
	out.Pages = make([]ocr.Page, 0, len(done))
	for _, p := range done {
		out.Pages = append(out.Pages, p)
	}
	sort.Slice(out.Pages, func(i, j int) bool { return out.Pages[i].PageNo < out.Pages[j].PageNo })

	out.FailedPages = nil
	for _, p := range b.Pages {
		if _, ok := done[p.No]; !ok {
			out.FailedPages = append(out.FailedPages, p.No)
		}
	}
	sort.Ints(out.FailedPages)
	out.Status = StatusComplete
	if len(out.FailedPages) > 0 {
		out.Status = StatusPartial
	}
	out.Elapsed = time.Since(start)
	return out
}

func maxPageNo(pages []Page) int {
	n := 0
	for _, p := range pages {
		n = max(n, p.No)
	}
	return n
}

var localPrefix = regexp.MustCompile(`^p\d+_`)

// Relabel flattens a single-image OCR result into one page numbered pageNo
// and namespaces element and parent ids as p<pageNo>_<id>.
func Relabel(doc *ocr.Document, pageNo int) ocr.Page {
	out := ocr.Page{PageNo: pageNo}
	for _, src := range doc.Pages {
		p := src.Clone()
		if out.ImageSize == nil {
			out.ImageSize = p.ImageSize
		}
		out.Layout = append(out.Layout, p.Layout...)
	}
	prefix := fmt.Sprintf("p%d_", pageNo)
	for i := range out.Layout {
		e := &out.Layout[i]
		id := localPrefix.ReplaceAllString(e.ElementID, "")
		if id == "" {
			id = fmt.Sprintf("e%d", i+1)
		}
		e.ElementID = prefix + id
		if e.ParentID != "" {
			e.ParentID = prefix + localPrefix.ReplaceAllString(e.ParentID, "")
		}
	}
	return out
}
