// Package parsecache keeps per-page OCR progress for a document so that an
// interrupted or partially failed parse can resume without re-recognising
// pages that already succeeded.
package parsecache

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
)

// DefaultTTL is how long a state survives after its last update.
const DefaultTTL = 24 * time.Hour

// FailureInfo describes the last failed attempt for a page.
type FailureInfo struct {
	Message    string    `json:"message"`
	FailedAt   time.Time `json:"failed_at"`
	RetryCount int       `json:"retry_count"`
}

// State is the cached progress of one document. A page number appears in
// at most one of Successes and Failures.
type State struct {
	Fingerprint string              `json:"fingerprint"`
	TotalPages  int                 `json:"total_pages"`
	Successes   map[int]ocr.Page    `json:"successes"`
	Failures    map[int]FailureInfo `json:"failures"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewState(fingerprint string, totalPages int, at time.Time) *State {
	return &State{
		Fingerprint: fingerprint,
		TotalPages:  totalPages,
		Successes:   make(map[int]ocr.Page),
		Failures:    make(map[int]FailureInfo),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// Expired reports whether the state was last updated more than ttl before now.
func (s *State) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// SuccessPages returns page numbers with a cached result, ascending.
func (s *State) SuccessPages() []int { return sortedKeys(s.Successes) }

// FailedPages returns page numbers whose last attempt failed, ascending.
func (s *State) FailedPages() []int { return sortedKeys(s.Failures) }

// PendingPages returns pages in 1..TotalPages without a cached success.
func (s *State) PendingPages() []int {
	var out []int
	for p := 1; p <= s.TotalPages; p++ {
		if _, ok := s.Successes[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Complete reports whether every page has a cached success.
func (s *State) Complete() bool {
	return s.TotalPages > 0 && len(s.Successes) >= s.TotalPages && len(s.PendingPages()) == 0
}

func (s *State) applySuccess(page ocr.Page, at time.Time) {
	s.Successes[page.PageNo] = page.Clone()
	delete(s.Failures, page.PageNo)
	s.UpdatedAt = at
}

func (s *State) applyFailure(pageNo int, message string, at time.Time) (FailureInfo, bool) {
	if _, ok := s.Successes[pageNo]; ok {
		return FailureInfo{}, false
	}
	info := FailureInfo{
		Message:    message,
		FailedAt:   at,
		RetryCount: s.Failures[pageNo].RetryCount + 1,
	}
	s.Failures[pageNo] = info
	s.UpdatedAt = at
	return info, true
}

func (s *State) clone() *State {
	c := *s
	c.Successes = make(map[int]ocr.Page, len(s.Successes))
	for k, v := range s.Successes {
		c.Successes[k] = v.Clone()
	}
	c.Failures = make(map[int]FailureInfo, len(s.Failures))
	for k, v := range s.Failures {
		c.Failures[k] = v
	}
	return &c
}

// Fingerprint identifies a document version by path, size and modification
// time. It is a hex blake2b-256 digest of "path|size|mtimeMillis".
func Fingerprint(path string, size int64, modTime time.Time) string {
	sum := blake2b.Sum256(fmt.Appendf(nil, "%s|%d|%d", path, size, modTime.UnixMilli()))
	return hex.EncodeToString(sum[:])
}

// Store persists states. Implementations make every page write atomic and
// keep Successes and Failures mutually exclusive.
//
// Load returns (nil, nil) when no state exists.
type Store interface {
	Load(ctx context.Context, fingerprint string) (*State, error)
	Begin(ctx context.Context, fingerprint string, totalPages int, at time.Time) error
	SaveSuccess(ctx context.Context, fingerprint string, page ocr.Page, at time.Time) error
	SaveFailure(ctx context.Context, fingerprint string, pageNo int, message string, at time.Time) (FailureInfo, error)
	Delete(ctx context.Context, fingerprint string) error
	Fingerprints(ctx context.Context) ([]string, error)
}

func sortedKeys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
