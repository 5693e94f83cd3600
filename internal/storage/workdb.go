// Package storage defines the Work Database port shared by every session
// backend, together with the helpers the backends have in common.
package storage

import (
	"context"
	"errors"
	"iter"
	"time"

	m "gooze.dev/pkg/orbit/internal/model"
)

var (
	// ErrNotFound is returned when opening a session that does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownItem is returned when recording a result for a key that is
	// not part of the session.
	ErrUnknownItem = errors.New("unknown work item")
	// ErrSessionLocked is returned when another process holds the session.
	ErrSessionLocked = errors.New("session is held by another process")
)

// Mode selects how a session is opened.
type Mode int

const (
	// ModeCreate opens the session, creating an empty one when it does not exist.
	// Its contents are only ever replaced through ResetAndPopulate.
	ModeCreate Mode = iota
	// ModeOpen opens an existing session and fails with ErrNotFound otherwise.
	ModeOpen
)

func (md Mode) String() string {
	switch md {
	case ModeCreate:
		return "create"
	case ModeOpen:
		return "open"
	default:
		return "unknown"
	}
}

// WorkDB is the persistent store of one session's work items and results.
// All methods are safe for concurrent use.
type WorkDB interface {
	// ResetAndPopulate atomically replaces every work item, result and the
	// session metadata. Previously recorded results are destroyed.
	ResetAndPopulate(ctx context.Context, items []m.WorkItem, cfg m.SessionConfig) error

	// AddResult records (or overwrites) the result for key. It fails with
	// ErrUnknownItem when the key is not part of the session.
	AddResult(ctx context.Context, key m.WorkItemKey, result m.WorkResult) error

	// PendingItems lazily yields the items without a result, ordered by key.
	// Every call starts a fresh iteration over the current state.
	PendingItems(ctx context.Context) iter.Seq2[m.WorkItem, error]

	// Records yields every item with its result (nil when pending), ordered by key.
	Records(ctx context.Context) iter.Seq2[m.WorkRecord, error]

	// Config returns the session metadata.
	Config(ctx context.Context) (m.SessionConfig, error)

	// Close flushes outstanding writes and releases the session.
	Close() error
}

// ReleaseFunc gives up a claim obtained from a Claimer.
type ReleaseFunc func(ctx context.Context) error

// Claimer is implemented by backends that can be shared by several executor
// processes. A claimed item is not handed to another claimant until it is
// released or ttl expires.
type Claimer interface {
	Claim(ctx context.Context, key m.WorkItemKey, ttl time.Duration) (ReleaseFunc, bool, error)
}
