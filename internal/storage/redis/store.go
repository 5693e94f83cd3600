// Package redis implements the Work Database on Redis so several executor
// hosts can share one session.
//
// A session named N under prefix P uses the keys P+N+":meta" (hash),
// P+N+":order" (list of item keys in execution order), P+N+":items" (hash of
// encoded work items) and P+N+":results" (hash of encoded results). Claims
// live under P+N+":claim:"+key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

var (
	_ storage.WorkDB  = (*Store)(nil)
	_ storage.Claimer = (*Store)(nil)
)

const (
	defaultPrefix   = "orbit:"
	defaultPageSize = 256
	configField     = "config"
)

// addResultScript records a result only when the item belongs to the session.
var addResultScript = backend.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// claimScript sets the claim only when the item has no result and nobody
// else holds it.
var claimScript = backend.NewScript(`
if redis.call("HEXISTS", KEYS[2], ARGV[1]) == 1 then
	return 0
end
if redis.call("SET", KEYS[1], ARGV[2], "NX", "PX", ARGV[3]) then
	return 1
end
return 0
`)

// releaseScript deletes a claim only if it still carries our token.
var releaseScript = backend.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds connection settings for New.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// ConnectTimeout bounds the total time spent retrying the first ping.
	ConnectTimeout time.Duration
}

// Store is a Redis backed storage.WorkDB.
type Store struct {
	client     *backend.Client
	ownsClient bool
	prefix     string
	session    string
	pageSize   int64
	tracer     trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithPageSize sets how many items are fetched per round trip while iterating.
func WithPageSize(size int64) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithTracer sets the tracer used for storage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// New connects to Redis, retrying with exponential backoff until the server
// answers or cfg.ConnectTimeout elapses, and opens the session.
func New(ctx context.Context, cfg Config, session string, mode storage.Mode, opts ...Option) (*Store, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxElapsedTime = cfg.ConnectTimeout

	if expBackoff.MaxElapsedTime <= 0 {
		expBackoff.MaxElapsedTime = 30 * time.Second
	}

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		err := client.Ping(ctx).Err()
		if err != nil {
			slog.Warn("Redis not reachable, retrying", "addr", cfg.Addr, "error", err)
		}

		return err
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s after retries: %w", cfg.Addr, err)
	}

	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}

	store, err := NewFromClient(ctx, client, session, mode, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	store.ownsClient = true

	return store, nil
}

// NewFromClient opens the session on an existing client. The client is not
// closed by Close.
func NewFromClient(ctx context.Context, client *backend.Client, session string, mode storage.Mode, opts ...Option) (*Store, error) {
	if session == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	store := &Store{
		client:   client,
		prefix:   defaultPrefix,
		session:  session,
		pageSize: defaultPageSize,
		tracer:   storage.NoOpTracer(),
	}

	for _, opt := range opts {
		opt(store)
	}

	attrs := []attribute.KeyValue{
		attribute.String("session", session),
		attribute.String("mode", mode.String()),
	}

	err := storage.ExecuteAndTrace(ctx, store.tracer, "redis.open_session", attrs, func(ctx context.Context) error {
		if mode == storage.ModeOpen {
			n, err := client.Exists(ctx, store.metaKey()).Result()
			if err != nil {
				return fmt.Errorf("redis error opening session: %w", err)
			}

			if n == 0 {
				return fmt.Errorf("open session %q: %w", session, storage.ErrNotFound)
			}

			return nil
		}

		empty, err := json.Marshal(m.SessionConfig{})
		if err != nil {
			return err
		}

		return client.HSetNX(ctx, store.metaKey(), configField, empty).Err()
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) base() string { return s.prefix + s.session }

func (s *Store) metaKey() string { return s.base() + ":meta" }

func (s *Store) orderKey() string { return s.base() + ":order" }

func (s *Store) itemsKey() string { return s.base() + ":items" }

func (s *Store) resultsKey() string { return s.base() + ":results" }

func (s *Store) claimKey(k m.WorkItemKey) string {
	return s.base() + ":claim:" + k.String()
}

// ResetAndPopulate implements storage.WorkDB inside a single MULTI/EXEC.
func (s *Store) ResetAndPopulate(ctx context.Context, items []m.WorkItem, cfg m.SessionConfig) error {
	attrs := []attribute.KeyValue{
		attribute.String("session", s.session),
		attribute.Int("items", len(items)),
	}

	return storage.ExecuteAndTrace(ctx, s.tracer, "redis.reset_and_populate", attrs, func(ctx context.Context) error {
		sorted := slices.Clone(items)
		slices.SortFunc(sorted, func(a, b m.WorkItem) int {
			switch {
			case a.Less(b.WorkItemKey):
				return -1
			case b.Less(a.WorkItemKey):
				return 1
			default:
				return 0
			}
		})

		order := make([]any, 0, len(sorted))
		fields := make([]any, 0, 2*len(sorted))

		for i, item := range sorted {
			if i > 0 && sorted[i-1].WorkItemKey == item.WorkItemKey {
				return fmt.Errorf("duplicate work item %s", item.WorkItemKey)
			}

			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to encode work item %s: %w", item.WorkItemKey, err)
			}

			order = append(order, item.WorkItemKey.String())
			fields = append(fields, item.WorkItemKey.String(), data)
		}

		meta, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode session config: %w", err)
		}

		_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, s.metaKey(), s.orderKey(), s.itemsKey(), s.resultsKey())
			pipe.HSet(ctx, s.metaKey(), configField, meta, "generation", uuid.NewString())

			if len(sorted) > 0 {
				pipe.RPush(ctx, s.orderKey(), order...)
				pipe.HSet(ctx, s.itemsKey(), fields...)
			}

			return nil
		})
		if err != nil {
			slog.Error("Failed to populate redis session", "session", s.session, "error", err)
			return fmt.Errorf("redis error populating session: %w", err)
		}

		return nil
	})
}

// AddResult implements storage.WorkDB.
func (s *Store) AddResult(ctx context.Context, key m.WorkItemKey, result m.WorkResult) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "redis.add_result", storage.KeyAttributes(s.session, key), func(ctx context.Context) error {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		ok, err := addResultScript.Run(ctx, s.client, []string{s.itemsKey(), s.resultsKey()}, key.String(), data).Int()
		if err != nil {
			return fmt.Errorf("redis error recording result for %s: %w", key, err)
		}

		if ok == 0 {
			return fmt.Errorf("add result for %s: %w", key, storage.ErrUnknownItem)
		}

		return nil
	})
}

// page is one window of the order list with its items and results.
type page struct {
	fetched int
	items   []m.WorkItem
	results []*m.WorkResult
}

func (s *Store) fetchPage(ctx context.Context, start int64) (page, error) {
	var p page

	err := storage.ExecuteAndTrace(ctx, s.tracer, "redis.fetch_page", []attribute.KeyValue{
		attribute.String("session", s.session),
		attribute.Int64("start", start),
	}, func(ctx context.Context) error {
		keys, err := s.client.LRange(ctx, s.orderKey(), start, start+s.pageSize-1).Result()
		if err != nil {
			return fmt.Errorf("redis error listing items: %w", err)
		}

		p.fetched = len(keys)
		if len(keys) == 0 {
			return nil
		}

		var itemsCmd, resultsCmd *backend.SliceCmd

		_, err = s.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
			itemsCmd = pipe.HMGet(ctx, s.itemsKey(), keys...)
			resultsCmd = pipe.HMGet(ctx, s.resultsKey(), keys...)

			return nil
		})
		if err != nil {
			return fmt.Errorf("redis error loading items: %w", err)
		}

		rawItems, rawResults := itemsCmd.Val(), resultsCmd.Val()

		for i, key := range keys {
			raw, ok := rawItems[i].(string)
			if !ok {
				// Replaced by a concurrent reset.
				continue
			}

			var item m.WorkItem
			if err := json.Unmarshal([]byte(raw), &item); err != nil {
				return fmt.Errorf("failed to decode work item %s: %w", key, err)
			}

			var result *m.WorkResult

			if rawResult, ok := rawResults[i].(string); ok {
				result = &m.WorkResult{}
				if err := json.Unmarshal([]byte(rawResult), result); err != nil {
					return fmt.Errorf("failed to decode result %s: %w", key, err)
				}
			}

			p.items = append(p.items, item)
			p.results = append(p.results, result)
		}

		return nil
	})

	return p, err
}

func (s *Store) records(ctx context.Context) iter.Seq2[m.WorkRecord, error] {
	return func(yield func(m.WorkRecord, error) bool) {
		for start := int64(0); ; start += s.pageSize {
			p, err := s.fetchPage(ctx, start)
			if err != nil {
				yield(m.WorkRecord{}, err)
				return
			}

			for i, item := range p.items {
				if !yield(m.WorkRecord{Item: item, Result: p.results[i]}, nil) {
					return
				}
			}

			if int64(p.fetched) < s.pageSize {
				return
			}
		}
	}
}

// PendingItems implements storage.WorkDB. Items are fetched one page at a
// time, so results recorded during iteration hide later items.
func (s *Store) PendingItems(ctx context.Context) iter.Seq2[m.WorkItem, error] {
	return func(yield func(m.WorkItem, error) bool) {
		for record, err := range s.records(ctx) {
			if err != nil {
				yield(m.WorkItem{}, err)
				return
			}

			if !record.Pending() {
				continue
			}

			if !yield(record.Item, nil) {
				return
			}
		}
	}
}

// Records implements storage.WorkDB.
func (s *Store) Records(ctx context.Context) iter.Seq2[m.WorkRecord, error] {
	return s.records(ctx)
}

// Config implements storage.WorkDB.
func (s *Store) Config(ctx context.Context) (m.SessionConfig, error) {
	var cfg m.SessionConfig

	raw, err := s.client.HGet(ctx, s.metaKey(), configField).Result()
	if errors.Is(err, backend.Nil) {
		return cfg, fmt.Errorf("session %q: %w", s.session, storage.ErrNotFound)
	}

	if err != nil {
		return cfg, fmt.Errorf("redis error reading session config: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode session config: %w", err)
	}

	return cfg, nil
}

// Claim implements storage.Claimer with SET NX PX and a compare-and-delete
// release. Items that already have a result are never claimed.
func (s *Store) Claim(ctx context.Context, key m.WorkItemKey, ttl time.Duration) (storage.ReleaseFunc, bool, error) {
	claimKey := s.claimKey(key)
	token := uuid.NewString()

	ok, err := claimScript.Run(ctx, s.client, []string{claimKey, s.resultsKey()},
		key.String(), token, ttl.Milliseconds()).Int()
	if err != nil {
		return nil, false, fmt.Errorf("redis error claiming %s: %w", key, err)
	}

	if ok == 0 {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, s.client, []string{claimKey}, token).Err()
	}

	return release, true, nil
}

// Close implements storage.WorkDB.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}

	return s.client.Close()
}
