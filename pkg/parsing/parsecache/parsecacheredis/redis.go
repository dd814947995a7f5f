// Package parsecacheredis stores parse progress in Redis so that several
// workers can share and resume document state.
package parsecacheredis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
)

// Store implements parsecache.Store on Redis hashes. Each document uses
// four keys (state, successes, failures, retry counters) that share the
// store TTL, plus a set indexing known fingerprints.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ parsecache.Store = (*Store)(nil)

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL sets the native key expiry. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func New(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: "parsecache", ttl: parsecache.DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stateKey(fp string) string   { return fmt.Sprintf("%s:state:%s", s.prefix, fp) }
func (s *Store) okKey(fp string) string      { return fmt.Sprintf("%s:ok:%s", s.prefix, fp) }
func (s *Store) failKey(fp string) string    { return fmt.Sprintf("%s:fail:%s", s.prefix, fp) }
func (s *Store) retriesKey(fp string) string { return fmt.Sprintf("%s:retries:%s", s.prefix, fp) }
func (s *Store) indexKey() string            { return s.prefix + ":index" }

func (s *Store) keys(fp string) []string {
	return []string{s.stateKey(fp), s.okKey(fp), s.failKey(fp), s.retriesKey(fp)}
}

type failureRecord struct {
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *Store) touch(ctx context.Context, pipe redis.Pipeliner, fp string, at time.Time) {
	pipe.HSet(ctx, s.stateKey(fp), "updated", stamp(at))
	pipe.HSetNX(ctx, s.stateKey(fp), "created", stamp(at))
	pipe.SAdd(ctx, s.indexKey(), fp)
	if s.ttl > 0 {
		for _, k := range s.keys(fp) {
			pipe.Expire(ctx, k, s.ttl)
		}
	}
}

func (s *Store) Begin(ctx context.Context, fp string, totalPages int, at time.Time) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.stateKey(fp), "total", totalPages)
	s.touch(ctx, pipe, fp, at)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("fingerprint", fp)
	}
	return nil
}

func (s *Store) SaveSuccess(ctx context.Context, fp string, page ocr.Page, at time.Time) error {
	data, err := json.Marshal(page)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err)
	}
	field := strconv.Itoa(page.PageNo)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.okKey(fp), field, data)
	pipe.HDel(ctx, s.failKey(fp), field)
	pipe.HDel(ctx, s.retriesKey(fp), field)
	s.touch(ctx, pipe, fp, at)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).
			WithDetail("fingerprint", fp).
			WithDetail("page", page.PageNo)
	}
	return nil
}

// saveFailureScript records a failure unless the page already succeeded and
// returns the new retry count, or -1 when the failure was ignored.
var saveFailureScript = redis.NewScript(`
local ok_key, fail_key, retries_key, state_key, index_key = KEYS[1], KEYS[2], KEYS[3], KEYS[4], KEYS[5]
local page, record, updated, ttl, fp = ARGV[1], ARGV[2], ARGV[3], tonumber(ARGV[4]), ARGV[5]

if redis.call('HEXISTS', ok_key, page) == 1 then
    return -1
end
local n = redis.call('HINCRBY', retries_key, page, 1)
redis.call('HSET', fail_key, page, record)
redis.call('HSET', state_key, 'updated', updated)
redis.call('HSETNX', state_key, 'created', updated)
redis.call('SADD', index_key, fp)
if ttl > 0 then
    for _, k in ipairs({ok_key, fail_key, retries_key, state_key}) do
        redis.call('EXPIRE', k, ttl)
    end
end
return n
`)

func (s *Store) SaveFailure(ctx context.Context, fp string, pageNo int, message string, at time.Time) (parsecache.FailureInfo, error) {
	rec := failureRecord{Message: message, FailedAt: at.UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return parsecache.FailureInfo{}, redisErrors.NewWithCause(ErrMarshal, err)
	}

	n, err := saveFailureScript.Run(ctx, s.rdb,
		[]string{s.okKey(fp), s.failKey(fp), s.retriesKey(fp), s.stateKey(fp), s.indexKey()},
		strconv.Itoa(pageNo), data, stamp(at), int64(s.ttl/time.Second), fp,
	).Int()
	if err != nil {
		return parsecache.FailureInfo{}, redisErrors.NewWithCause(ErrWrite, err).
			WithDetail("fingerprint", fp).
			WithDetail("page", pageNo)
	}
	if n < 0 {
		return parsecache.FailureInfo{}, nil
	}
	return parsecache.FailureInfo{Message: message, FailedAt: rec.FailedAt, RetryCount: n}, nil
}

func (s *Store) Load(ctx context.Context, fp string) (*parsecache.State, error) {
	pipe := s.rdb.Pipeline()
	stateCmd := pipe.HGetAll(ctx, s.stateKey(fp))
	okCmd := pipe.HGetAll(ctx, s.okKey(fp))
	failCmd := pipe.HGetAll(ctx, s.failKey(fp))
	retriesCmd := pipe.HGetAll(ctx, s.retriesKey(fp))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrRead, err).WithDetail("fingerprint", fp)
	}

	meta := stateCmd.Val()
	if len(meta) == 0 {
		return nil, nil
	}
	created, _ := time.Parse(time.RFC3339Nano, meta["created"])
	updated, _ := time.Parse(time.RFC3339Nano, meta["updated"])
	total, _ := strconv.Atoi(meta["total"])
	st := parsecache.NewState(fp, total, created)
	st.UpdatedAt = updated

	for field, raw := range okCmd.Val() {
		var page ocr.Page
		if err := json.Unmarshal([]byte(raw), &page); err != nil {
			return nil, corrupt(err, fp, field)
		}
		st.Successes[page.PageNo] = page
	}
	retries := retriesCmd.Val()
	for field, raw := range failCmd.Val() {
		pageNo, err := strconv.Atoi(field)
		if err != nil {
			return nil, corrupt(err, fp, field)
		}
		var rec failureRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, corrupt(err, fp, field)
		}
		n, _ := strconv.Atoi(retries[field])
		st.Failures[pageNo] = parsecache.FailureInfo{Message: rec.Message, FailedAt: rec.FailedAt, RetryCount: n}
	}
	return st, nil
}

func (s *Store) Delete(ctx context.Context, fp string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keys(fp)...)
	pipe.SRem(ctx, s.indexKey(), fp)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrWrite, err).WithDetail("fingerprint", fp)
	}
	return nil
}

// Fingerprints lists indexed documents, pruning entries whose keys already
// expired.
func (s *Store) Fingerprints(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, redisErrors.NewWithCause(ErrRead, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, fp := range members {
		exists[i] = pipe.Exists(ctx, s.stateKey(fp))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, redisErrors.NewWithCause(ErrRead, err)
	}

	var live, stale []string
	for i, fp := range members {
		if exists[i].Val() > 0 {
			live = append(live, fp)
		} else {
			stale = append(stale, fp)
		}
	}
	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, s.indexKey(), stale).Err(); err != nil {
			return nil, redisErrors.NewWithCause(ErrWrite, err)
		}
	}
	sort.Strings(live)
	return live, nil
}

func corrupt(err error, fp, field string) error {
	return parsecache.ErrRegistry.NewWithCause(parsecache.ErrCorruptState, err).
		WithDetail("fingerprint", fp).
		WithDetail("field", field)
}
