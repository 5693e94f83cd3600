// Package postgres implements the Work Database on PostgreSQL so several
// executor hosts can share one session. Results live on the work item rows
// and claims are leases stored in the same row.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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
	defaultPageSize = 256
	connectTimeout  = 30 * time.Second
)

// Store is a PostgreSQL backed storage.WorkDB.
type Store struct {
	pool     *pgxpool.Pool
	ownsPool bool
	session  string
	pageSize int
	tracer   trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets how many rows are fetched per query while iterating.
func WithPageSize(size int) Option {
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

// New connects to dsn, applies migrations and opens the session.
func New(ctx context.Context, dsn, session string, mode storage.Mode, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not create postgres pool: %w", err)
	}

	if err := ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}

	store, err := NewFromPool(ctx, pool, session, mode, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}

	store.ownsPool = true

	return store, nil
}

// ping waits for the server with exponential backoff.
func ping(ctx context.Context, pool *pgxpool.Pool) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxElapsedTime = connectTimeout

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		err := pool.Ping(ctx)
		if err != nil {
			slog.Warn("Postgres not reachable, retrying", "error", err)
		}

		return err
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return fmt.Errorf("could not reach postgres: %w", err)
	}

	return nil
}

// NewFromPool opens the session on a migrated pool. The pool is not closed
// by Close.
func NewFromPool(ctx context.Context, pool *pgxpool.Pool, session string, mode storage.Mode, opts ...Option) (*Store, error) {
	if session == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	store := &Store{
		pool:     pool,
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

	err := storage.ExecuteAndTrace(ctx, store.tracer, "postgres.open_session", attrs, func(ctx context.Context) error {
		if mode == storage.ModeOpen {
			var exists bool

			err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orbit_sessions WHERE name = $1)`, session).Scan(&exists)
			if err != nil {
				return fmt.Errorf("error opening session: %w", err)
			}

			if !exists {
				return fmt.Errorf("open session %q: %w", session, storage.ErrNotFound)
			}

			return nil
		}

		_, err := pool.Exec(ctx,
			`INSERT INTO orbit_sessions (name, generation) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			session, uuid.NewString())
		if err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

// ResetAndPopulate implements storage.WorkDB in one transaction.
func (s *Store) ResetAndPopulate(ctx context.Context, items []m.WorkItem, cfg m.SessionConfig) error {
	attrs := []attribute.KeyValue{
		attribute.String("session", s.session),
		attribute.Int("items", len(items)),
	}

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.reset_and_populate", attrs, func(ctx context.Context) error {
		meta, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode session config: %w", err)
		}

		rows := make([][]any, 0, len(items))
		for _, item := range items {
			args := item.TestArgs
			if args == nil {
				args = []string{}
			}

			rows = append(rows, []any{
				s.session, item.Module, item.Operator, item.Occurrence,
				item.TestRunner, args, int64(item.Timeout),
			})
		}

		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `
				INSERT INTO orbit_sessions (name, generation, config)
				VALUES ($1, $2, $3)
				ON CONFLICT (name) DO UPDATE
				SET generation = EXCLUDED.generation, config = EXCLUDED.config, updated_at = NOW()`,
				s.session, uuid.NewString(), meta)
			if err != nil {
				return fmt.Errorf("error updating session: %w", err)
			}

			if _, err := tx.Exec(ctx, `DELETE FROM orbit_work_items WHERE session = $1`, s.session); err != nil {
				return fmt.Errorf("error clearing work items: %w", err)
			}

			if len(rows) == 0 {
				return nil
			}

			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"orbit_work_items"},
				[]string{"session", "module", "operator", "occurrence", "test_runner", "test_args", "timeout_ns"},
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				slog.Error("Failed to copy work items", "session", s.session, "error", err)
				return fmt.Errorf("error inserting work items: %w", err)
			}

			return nil
		})
	})
}

// AddResult implements storage.WorkDB. Recording a result also drops any
// claim on the item.
func (s *Store) AddResult(ctx context.Context, key m.WorkItemKey, result m.WorkResult) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.add_result", storage.KeyAttributes(s.session, key), func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE orbit_work_items
			SET outcome = $5, data = $6, claim_token = NULL, claimed_until = NULL
			WHERE session = $1 AND module = $2 AND operator = $3 AND occurrence = $4`,
			s.session, key.Module, key.Operator, key.Occurrence, string(result.Outcome), result.Data)
		if err != nil {
			return fmt.Errorf("error recording result for %s: %w", key, err)
		}

		if tag.RowsAffected() == 0 {
			return fmt.Errorf("add result for %s: %w", key, storage.ErrUnknownItem)
		}

		return nil
	})
}

const pageQuery = `
	SELECT module, operator, occurrence, test_runner, test_args, timeout_ns, outcome, data
	FROM orbit_work_items
	WHERE session = $1
	  AND (module, operator, occurrence) > ($2, $3, $4)
	  AND ($5 OR outcome IS NULL)
	ORDER BY module, operator, occurrence
	LIMIT $6`

func (s *Store) fetchPage(ctx context.Context, after m.WorkItemKey, includeDone bool) ([]m.WorkRecord, error) {
	var records []m.WorkRecord

	attrs := []attribute.KeyValue{
		attribute.String("session", s.session),
		attribute.String("after", after.String()),
	}

	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.fetch_page", attrs, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, pageQuery,
			s.session, after.Module, after.Operator, after.Occurrence, includeDone, s.pageSize)
		if err != nil {
			return fmt.Errorf("error listing work items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				record    m.WorkRecord
				timeoutNS int64
				outcome   *string
				data      *string
			)

			err := rows.Scan(
				&record.Item.Module, &record.Item.Operator, &record.Item.Occurrence,
				&record.Item.TestRunner, &record.Item.TestArgs, &timeoutNS, &outcome, &data,
			)
			if err != nil {
				return fmt.Errorf("error scanning work item: %w", err)
			}

			record.Item.Timeout = time.Duration(timeoutNS)

			if outcome != nil {
				record.Result = &m.WorkResult{Outcome: m.Outcome(*outcome)}
				if data != nil {
					record.Result.Data = *data
				}
			}

			records = append(records, record)
		}

		return rows.Err()
	})

	return records, err
}

func (s *Store) records(ctx context.Context, includeDone bool) iter.Seq2[m.WorkRecord, error] {
	return func(yield func(m.WorkRecord, error) bool) {
		// Sorts before every real key: modules are never empty.
		after := m.WorkItemKey{Occurrence: -1}

		for {
			page, err := s.fetchPage(ctx, after, includeDone)
			if err != nil {
				yield(m.WorkRecord{}, err)
				return
			}

			for _, record := range page {
				if !yield(record, nil) {
					return
				}
			}

			if len(page) < s.pageSize {
				return
			}

			after = page[len(page)-1].Item.WorkItemKey
		}
	}
}

// PendingItems implements storage.WorkDB using keyset pagination, so results
// recorded during iteration hide later items.
func (s *Store) PendingItems(ctx context.Context) iter.Seq2[m.WorkItem, error] {
	return func(yield func(m.WorkItem, error) bool) {
		for record, err := range s.records(ctx, false) {
			if err != nil {
				yield(m.WorkItem{}, err)
				return
			}

			if !yield(record.Item, nil) {
				return
			}
		}
	}
}

// Records implements storage.WorkDB.
func (s *Store) Records(ctx context.Context) iter.Seq2[m.WorkRecord, error] {
	return s.records(ctx, true)
}

// Config implements storage.WorkDB.
func (s *Store) Config(ctx context.Context) (m.SessionConfig, error) {
	var (
		cfg m.SessionConfig
		raw []byte
	)

	err := s.pool.QueryRow(ctx, `SELECT config FROM orbit_sessions WHERE name = $1`, s.session).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, fmt.Errorf("session %q: %w", s.session, storage.ErrNotFound)
	}

	if err != nil {
		return cfg, fmt.Errorf("error reading session config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode session config: %w", err)
	}

	return cfg, nil
}

// Claim implements storage.Claimer by leasing the row until now+ttl. Items
// that already have a result are never claimed.
func (s *Store) Claim(ctx context.Context, key m.WorkItemKey, ttl time.Duration) (storage.ReleaseFunc, bool, error) {
	token := uuid.NewString()

	tag, err := s.pool.Exec(ctx, `
		UPDATE orbit_work_items
		SET claim_token = $5, claimed_until = NOW() + make_interval(secs => $6)
		WHERE session = $1 AND module = $2 AND operator = $3 AND occurrence = $4
		  AND outcome IS NULL
		  AND (claimed_until IS NULL OR claimed_until < NOW())`,
		s.session, key.Module, key.Operator, key.Occurrence, token, ttl.Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("error claiming %s: %w", key, err)
	}

	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			UPDATE orbit_work_items
			SET claim_token = NULL, claimed_until = NULL
			WHERE session = $1 AND module = $2 AND operator = $3 AND occurrence = $4 AND claim_token = $5`,
			s.session, key.Module, key.Operator, key.Occurrence, token)
		if err != nil {
			return fmt.Errorf("error releasing claim on %s: %w", key, err)
		}

		return nil
	}

	return release, true, nil
}

// Close implements storage.WorkDB.
func (s *Store) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}

	return nil
}
