// Package file implements the Work Database on the local filesystem.
//
// A session named N lives in three files inside the store directory:
// N.json holds the work items and metadata and is replaced atomically,
// N.results is an append-only journal of results, and N.lock is held with an
// advisory lock for as long as the session is open.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
	"gooze.dev/pkg/orbit/pkg"
)

var _ storage.WorkDB = (*Store)(nil)

// snapshot is the on-disk form of N.json.
type snapshot struct {
	Generation string          `json:"generation"`
	Config     m.SessionConfig `json:"config"`
	Items      []m.WorkItem    `json:"items"`
}

// journalRecord is one entry of N.results. Records whose generation differs
// from the snapshot belong to a replaced session and are ignored.
type journalRecord struct {
	Generation string
	Key        m.WorkItemKey
	Result     m.WorkResult
}

// Store is a file backed storage.WorkDB.
type Store struct {
	name   string
	dir    string
	tracer trace.Tracer

	mu      sync.RWMutex
	snap    snapshot
	index   map[m.WorkItemKey]int
	results map[m.WorkItemKey]m.WorkResult
	journal pkg.Journal[journalRecord]
	lock    *sessionLock
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithTracer sets the tracer used for storage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// Open opens the session called name inside dir.
func Open(ctx context.Context, dir, name string, mode storage.Mode, opts ...Option) (*Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	if dir == "" {
		dir = ".orbit"
	}

	store := &Store{
		name:    name,
		dir:     dir,
		tracer:  storage.NoOpTracer(),
		index:   map[m.WorkItemKey]int{},
		results: map[m.WorkItemKey]m.WorkResult{},
	}

	for _, opt := range opts {
		opt(store)
	}

	attrs := []attribute.KeyValue{
		attribute.String("session", name),
		attribute.String("mode", mode.String()),
	}

	err := storage.ExecuteAndTrace(ctx, store.tracer, "file.open_session", attrs, func(_ context.Context) error {
		return store.open(mode)
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid session name %q", name)
	}

	return nil
}

func (s *Store) snapshotPath() string { return filepath.Join(s.dir, s.name+".json") }

func (s *Store) journalPath() string { return filepath.Join(s.dir, s.name+".results") }

func (s *Store) lockPath() string { return filepath.Join(s.dir, s.name+".lock") }

func (s *Store) open(mode storage.Mode) error {
	if mode == storage.ModeOpen {
		if _, err := os.Stat(s.snapshotPath()); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open session %q: %w", s.name, storage.ErrNotFound)
		}
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		slog.Error("Failed to create session directory", "dir", s.dir, "error", err)
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	lock, err := acquireLock(s.lockPath())
	if err != nil {
		return fmt.Errorf("lock session %q: %w", s.name, err)
	}

	s.lock = lock

	if err := s.load(mode); err != nil {
		_ = s.lock.release()
		return err
	}

	return nil
}

func (s *Store) load(mode storage.Mode) error {
	data, err := os.ReadFile(s.snapshotPath())

	switch {
	case errors.Is(err, os.ErrNotExist) && mode == storage.ModeOpen:
		return fmt.Errorf("open session %q: %w", s.name, storage.ErrNotFound)
	case errors.Is(err, os.ErrNotExist):
		s.snap = snapshot{Generation: uuid.NewString()}
		if err := writeFileAtomic(s.snapshotPath(), s.snap); err != nil {
			return err
		}
	case err != nil:
		slog.Error("Failed to read session snapshot", "path", s.snapshotPath(), "error", err)
		return fmt.Errorf("failed to read session snapshot: %w", err)
	default:
		if err := json.Unmarshal(data, &s.snap); err != nil {
			return fmt.Errorf("failed to decode session snapshot %s: %w", s.snapshotPath(), err)
		}
	}

	s.reindex()

	journal, err := pkg.OpenJournal[journalRecord](s.journalPath())
	if err != nil {
		return err
	}

	s.journal = journal

	err = journal.Range(func(_ uint64, rec journalRecord) error {
		if rec.Generation != s.snap.Generation {
			return nil
		}

		if _, ok := s.index[rec.Key]; ok {
			s.results[rec.Key] = rec.Result
		}

		return nil
	})
	if err != nil {
		_ = journal.Close()
		return fmt.Errorf("failed to replay results journal: %w", err)
	}

	slog.Debug("Opened file session", "session", s.name, "items", len(s.snap.Items), "results", len(s.results))

	return nil
}

func (s *Store) reindex() {
	s.index = make(map[m.WorkItemKey]int, len(s.snap.Items))
	for i, item := range s.snap.Items {
		s.index[item.WorkItemKey] = i
	}
}

// ResetAndPopulate implements storage.WorkDB. The new snapshot is renamed into
// place before the journal is truncated, so a crash in between leaves only
// results of the previous generation behind, which are ignored on replay.
func (s *Store) ResetAndPopulate(ctx context.Context, items []m.WorkItem, cfg m.SessionConfig) error {
	attrs := []attribute.KeyValue{
		attribute.String("session", s.name),
		attribute.Int("items", len(items)),
	}

	return storage.ExecuteAndTrace(ctx, s.tracer, "file.reset_and_populate", attrs, func(_ context.Context) error {
		sorted := slices.Clone(items)
		slices.SortFunc(sorted, func(a, b m.WorkItem) int { return compareKeys(a.WorkItemKey, b.WorkItemKey) })

		for i := 1; i < len(sorted); i++ {
			if sorted[i-1].WorkItemKey == sorted[i].WorkItemKey {
				return fmt.Errorf("duplicate work item %s", sorted[i].WorkItemKey)
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed {
			return fmt.Errorf("session %q is closed", s.name)
		}

		next := snapshot{Generation: uuid.NewString(), Config: cfg, Items: sorted}
		if err := writeFileAtomic(s.snapshotPath(), next); err != nil {
			return err
		}

		if err := s.journal.Truncate(); err != nil {
			slog.Error("Failed to truncate results journal", "path", s.journalPath(), "error", err)
			return err
		}

		s.snap = next
		s.results = map[m.WorkItemKey]m.WorkResult{}
		s.reindex()

		return nil
	})
}

// AddResult implements storage.WorkDB. The result is fsynced to the journal
// before it becomes visible.
func (s *Store) AddResult(ctx context.Context, key m.WorkItemKey, result m.WorkResult) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "file.add_result", storage.KeyAttributes(s.name, key), func(_ context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed {
			return fmt.Errorf("session %q is closed", s.name)
		}

		if _, ok := s.index[key]; !ok {
			return fmt.Errorf("add result for %s: %w", key, storage.ErrUnknownItem)
		}

		rec := journalRecord{Generation: s.snap.Generation, Key: key, Result: result}
		if err := s.journal.Append(rec); err != nil {
			return fmt.Errorf("failed to record result for %s: %w", key, err)
		}

		s.results[key] = result

		return nil
	})
}

// PendingItems implements storage.WorkDB. Items completed while the
// iteration is in progress are skipped.
func (s *Store) PendingItems(ctx context.Context) iter.Seq2[m.WorkItem, error] {
	return func(yield func(m.WorkItem, error) bool) {
		s.mu.RLock()
		keys := make([]m.WorkItemKey, 0, len(s.snap.Items)-len(s.results))

		for _, item := range s.snap.Items {
			if _, done := s.results[item.WorkItemKey]; !done {
				keys = append(keys, item.WorkItemKey)
			}
		}
		s.mu.RUnlock()

		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				yield(m.WorkItem{}, err)
				return
			}

			item, pending, ok := s.pendingItem(key)
			if !ok || !pending {
				continue
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

func (s *Store) pendingItem(key m.WorkItemKey) (m.WorkItem, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[key]
	if !ok {
		return m.WorkItem{}, false, false
	}

	_, done := s.results[key]

	return cloneItem(s.snap.Items[idx]), !done, true
}

// Records implements storage.WorkDB.
func (s *Store) Records(ctx context.Context) iter.Seq2[m.WorkRecord, error] {
	return func(yield func(m.WorkRecord, error) bool) {
		s.mu.RLock()
		records := make([]m.WorkRecord, 0, len(s.snap.Items))

		for _, item := range s.snap.Items {
			record := m.WorkRecord{Item: cloneItem(item)}
			if result, ok := s.results[item.WorkItemKey]; ok {
				record.Result = &result
			}

			records = append(records, record)
		}
		s.mu.RUnlock()

		for _, record := range records {
			if err := ctx.Err(); err != nil {
				yield(m.WorkRecord{}, err)
				return
			}

			if !yield(record, nil) {
				return
			}
		}
	}
}

// Config implements storage.WorkDB.
func (s *Store) Config(_ context.Context) (m.SessionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.snap.Config
	cfg.TestArgs = slices.Clone(cfg.TestArgs)

	return cfg, nil
}

// Close implements storage.WorkDB.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs []error
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}

	if s.lock != nil {
		errs = append(errs, s.lock.release())
	}

	return errors.Join(errs...)
}

func cloneItem(item m.WorkItem) m.WorkItem {
	item.TestArgs = slices.Clone(item.TestArgs)
	return item
}

func compareKeys(a, b m.WorkItemKey) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// writeFileAtomic writes v as JSON to a temporary file in the destination
// directory, fsyncs it and renames it over path.
func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		slog.Error("Failed to replace session snapshot", "path", path, "error", err)
		return fmt.Errorf("failed to replace session snapshot: %w", err)
	}

	syncDir(dir)

	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil {
		slog.Debug("Directory sync not supported", "dir", dir, "error", err)
	}
}
