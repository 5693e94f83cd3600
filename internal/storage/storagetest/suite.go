// Package storagetest holds the behavioural test suite every Work Database
// backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

// Opener opens the named session of the backend under test.
type Opener func(t *testing.T, session string, mode storage.Mode) (storage.WorkDB, error)

// SessionConfig is the metadata used by the suite.
func SessionConfig() m.SessionConfig {
	return m.SessionConfig{
		Root:       "/src/project",
		TestRunner: "gotest",
		TestArgs:   []string{"./...", "-count=1"},
		Timeout:    90 * time.Second,
	}
}

// Items builds the cross product of modules, operators and occurrence counts.
func Items(cfg m.SessionConfig, modules []string, counts map[string]int) []m.WorkItem {
	var items []m.WorkItem

	for _, module := range modules {
		for operator, count := range counts {
			for occurrence := range count {
				key := m.WorkItemKey{Module: module, Operator: operator, Occurrence: occurrence}
				items = append(items, m.NewWorkItem(key, cfg))
			}
		}
	}

	return items
}

// Pending drains PendingItems into a slice.
func Pending(t *testing.T, db storage.WorkDB) []m.WorkItem {
	t.Helper()

	var items []m.WorkItem

	for item, err := range db.PendingItems(context.Background()) {
		require.NoError(t, err)

		items = append(items, item)
	}

	return items
}

// Records drains Records into a map keyed by work item key.
func Records(t *testing.T, db storage.WorkDB) map[m.WorkItemKey]m.WorkRecord {
	t.Helper()

	records := map[m.WorkItemKey]m.WorkRecord{}

	for record, err := range db.Records(context.Background()) {
		require.NoError(t, err)

		records[record.Item.WorkItemKey] = record
	}

	return records
}

func keysOf(items []m.WorkItem) []m.WorkItemKey {
	keys := make([]m.WorkItemKey, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.WorkItemKey)
	}

	return keys
}

// RunSuite exercises the WorkDB contract against the backend behind open.
func RunSuite(t *testing.T, open Opener) {
	t.Helper()

	var (
		mu      sync.Mutex
		counter int
	)

	newSession := func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++

		return fmt.Sprintf("suite-%d", counter)
	}

	populated := func(t *testing.T) (storage.WorkDB, string, []m.WorkItem) {
		t.Helper()

		session := newSession()
		db, err := open(t, session, storage.ModeCreate)
		require.NoError(t, err)

		items := Items(SessionConfig(), []string{"b/two.go", "a/one.go"}, map[string]int{"arithmetic": 2, "boolean": 1})
		require.NoError(t, db.ResetAndPopulate(context.Background(), items, SessionConfig()))

		return db, session, items
	}

	ctx := context.Background()

	t.Run("open missing session fails with ErrNotFound", func(t *testing.T) {
		_, err := open(t, newSession(), storage.ModeOpen)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("populate yields every item pending in key order", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		pending := Pending(t, db)
		require.Len(t, pending, len(items))
		assert.ElementsMatch(t, keysOf(items), keysOf(pending))

		for i := 1; i < len(pending); i++ {
			assert.True(t, pending[i-1].Less(pending[i].WorkItemKey), "items not ordered: %v then %v", pending[i-1].WorkItemKey, pending[i].WorkItemKey)
		}

		assert.Equal(t, []string{"./...", "-count=1"}, pending[0].TestArgs)
		assert.Equal(t, "gotest", pending[0].TestRunner)
		assert.Equal(t, 90*time.Second, pending[0].Timeout)

		cfg, err := db.Config(ctx)
		require.NoError(t, err)
		assert.Equal(t, SessionConfig(), cfg)
	})

	t.Run("pending iteration is restartable and stable", func(t *testing.T) {
		db, _, _ := populated(t)
		defer db.Close()

		first := keysOf(Pending(t, db))
		second := keysOf(Pending(t, db))
		assert.Equal(t, first, second)
	})

	t.Run("add result removes item from pending", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		key := items[0].WorkItemKey
		require.NoError(t, db.AddResult(ctx, key, m.WorkResult{Outcome: m.Killed, Data: "FAIL"}))

		pending := Pending(t, db)
		assert.Len(t, pending, len(items)-1)
		assert.NotContains(t, keysOf(pending), key)

		record := Records(t, db)[key]
		require.NotNil(t, record.Result)
		assert.Equal(t, m.Killed, record.Result.Outcome)
		assert.Equal(t, "FAIL", record.Result.Data)
	})

	t.Run("add result is idempotent and last write wins", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		key := items[1].WorkItemKey
		result := m.WorkResult{Outcome: m.Survived, Data: "ok"}
		require.NoError(t, db.AddResult(ctx, key, result))
		once := Records(t, db)
		require.NoError(t, db.AddResult(ctx, key, result))
		assert.Equal(t, once, Records(t, db))

		require.NoError(t, db.AddResult(ctx, key, m.WorkResult{Outcome: m.Exception, Data: "boom"}))
		record := Records(t, db)[key]
		require.NotNil(t, record.Result)
		assert.Equal(t, m.Exception, record.Result.Outcome)
		assert.Len(t, Records(t, db), len(items))
	})

	t.Run("add result for unknown key fails", func(t *testing.T) {
		db, _, _ := populated(t)
		defer db.Close()

		err := db.AddResult(ctx, m.WorkItemKey{Module: "nope.go", Operator: "boolean"}, m.WorkResult{Outcome: m.Killed})
		require.ErrorIs(t, err, storage.ErrUnknownItem)
	})

	t.Run("reset discards results and keeps identical items", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		require.NoError(t, db.AddResult(ctx, items[0].WorkItemKey, m.WorkResult{Outcome: m.Killed}))
		require.NoError(t, db.ResetAndPopulate(ctx, items, SessionConfig()))

		records := Records(t, db)
		require.Len(t, records, len(items))

		for _, record := range records {
			assert.True(t, record.Pending(), "record %v should be pending", record.Item.WorkItemKey)
		}
	})

	t.Run("results survive close and reopen", func(t *testing.T) {
		db, session, items := populated(t)

		key := items[2].WorkItemKey
		require.NoError(t, db.AddResult(ctx, key, m.WorkResult{Outcome: m.Survived, Data: "PASS"}))
		require.NoError(t, db.Close())

		reopened, err := open(t, session, storage.ModeOpen)
		require.NoError(t, err)
		defer reopened.Close()

		record := Records(t, reopened)[key]
		require.NotNil(t, record.Result)
		assert.Equal(t, m.Survived, record.Result.Outcome)
		assert.Len(t, Pending(t, reopened), len(items)-1)
	})

	t.Run("concurrent results are all recorded", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		var group errgroup.Group
		for _, item := range Pending(t, db) {
			group.Go(func() error {
				return db.AddResult(ctx, item.WorkItemKey, m.WorkResult{Outcome: m.Killed, Data: item.String()})
			})
		}

		require.NoError(t, group.Wait())
		assert.Empty(t, Pending(t, db))

		records := Records(t, db)
		require.Len(t, records, len(items))

		for key, record := range records {
			require.NotNil(t, record.Result)
			assert.Equal(t, key.String(), record.Result.Data)
		}
	})

	t.Run("claims are exclusive until released", func(t *testing.T) {
		db, _, items := populated(t)
		defer db.Close()

		claimer, ok := db.(storage.Claimer)
		if !ok {
			t.Skip("backend does not support claims")
		}

		key := items[0].WorkItemKey
		release, claimed, err := claimer.Claim(ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, claimed)

		_, claimedAgain, err := claimer.Claim(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.False(t, claimedAgain)

		require.NoError(t, release(ctx))

		release, claimed, err = claimer.Claim(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
		require.NoError(t, release(ctx))
	})

	t.Run("items with a result cannot be claimed", func(t *testing.T) {
		db, session, items := populated(t)
		defer db.Close()

		claimer, ok := db.(storage.Claimer)
		if !ok {
			t.Skip("backend does not support claims")
		}

		other, err := open(t, session, storage.ModeOpen)
		require.NoError(t, err)
		defer other.Close()

		pending := Pending(t, other)
		require.Len(t, pending, len(items))

		key := items[len(items)-1].WorkItemKey
		release, claimed, err := claimer.Claim(ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, db.AddResult(ctx, key, m.WorkResult{Outcome: m.Killed}))
		require.NoError(t, release(ctx))

		for _, item := range pending {
			release, claimed, err := other.(storage.Claimer).Claim(ctx, item.WorkItemKey, time.Minute)
			require.NoError(t, err)

			if item.WorkItemKey == key {
				assert.False(t, claimed, "completed item %s was claimed", key)
				continue
			}

			require.True(t, claimed)
			require.NoError(t, release(ctx))
		}
	})
}
