package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/domain/operators"
	"gooze.dev/pkg/orbit/internal/domain/runners"
	m "gooze.dev/pkg/orbit/internal/model"
)

func flagsItem(operator string, occurrence int) m.WorkItem {
	return m.WorkItem{
		WorkItemKey: m.WorkItemKey{Module: flagsModule, Operator: operator, Occurrence: occurrence},
		TestRunner:  "fake",
		TestArgs:    []string{"-run", "TestFlags"},
		Timeout:     time.Minute,
	}
}

func TestWorker_Run(t *testing.T) {
	tests := []struct {
		name        string
		item        m.WorkItem
		runner      fakeRunner
		wantOutcome m.Outcome
		wantData    string
	}{
		{
			name:        "passing tests survive",
			item:        flagsItem("boolean", 1),
			runner:      killsEnabledFlip(),
			wantOutcome: m.Survived,
			wantData:    "ok",
		},
		{
			name:        "failing tests kill",
			item:        flagsItem("boolean", 0),
			runner:      killsEnabledFlip(),
			wantOutcome: m.Killed,
			wantData:    "--- FAIL: TestEnabled",
		},
		{
			name: "runner crash is an exception",
			item: flagsItem("boolean", 0),
			runner: fakeRunner{name: "fake", run: func(context.Context, string, []string) (runners.Verdict, error) {
				return runners.Verdict{}, assert.AnError
			}},
			wantOutcome: m.Exception,
			wantData:    assert.AnError.Error(),
		},
		{
			name:        "unknown operator is an exception",
			item:        flagsItem("nope", 0),
			runner:      passing(),
			wantOutcome: m.Exception,
			wantData:    `unknown operator: "nope"`,
		},
		{
			name:        "occurrence out of range is an exception",
			item:        flagsItem("boolean", 2),
			runner:      passing(),
			wantOutcome: m.Exception,
			wantData:    operators.ErrOccurrenceOutOfRange.Error(),
		},
		{
			name: "missing module is an exception",
			item: m.WorkItem{
				WorkItemKey: m.WorkItemKey{Module: "gone.go", Operator: "boolean"},
				TestRunner:  "fake",
				Timeout:     time.Minute,
			},
			runner:      passing(),
			wantOutcome: m.Exception,
			wantData:    "failed to read module gone.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeProject(t, map[string]string{flagsModule: flagsSrc})
			w := NewWorker(m.Path(root), adapter.NewLocalSourceFSAdapter(), operators.Default(), newRunners(tt.runner))

			result := w.Run(context.Background(), tt.item)

			assert.Equal(t, tt.wantOutcome, result.Outcome)
			assert.Contains(t, result.Data, tt.wantData)
		})
	}
}

func TestWorker_RunIsolatesWorkspace(t *testing.T) {
	root := writeProject(t, map[string]string{flagsModule: flagsSrc})

	var (
		seenDir  string
		seenArgs []string
	)

	runner := fakeRunner{name: "fake", run: func(_ context.Context, dir string, args []string) (runners.Verdict, error) {
		seenDir, seenArgs = dir, args

		src, err := os.ReadFile(filepath.Join(dir, flagsModule))
		if err != nil {
			return runners.Verdict{}, err
		}

		return runners.Verdict{Passed: true, Output: string(src)}, nil
	}}

	w := NewWorker(m.Path(root), adapter.NewLocalSourceFSAdapter(), operators.Default(), newRunners(runner))
	result := w.Run(context.Background(), flagsItem("boolean", 0))

	require.Equal(t, m.Survived, result.Outcome)
	assert.Contains(t, result.Data, "func Enabled() bool { return false }")
	assert.NotEqual(t, root, seenDir)
	assert.Equal(t, []string{"-run", "TestFlags"}, seenArgs)

	original, err := os.ReadFile(filepath.Join(root, flagsModule))
	require.NoError(t, err)
	assert.Equal(t, flagsSrc, string(original))

	_, err = os.Stat(seenDir)
	assert.True(t, os.IsNotExist(err), "workspace should be removed")
}

func TestWorker_RunTimeout(t *testing.T) {
	root := writeProject(t, map[string]string{flagsModule: flagsSrc})

	hang := fakeRunner{name: "fake", run: func(ctx context.Context, _ string, _ []string) (runners.Verdict, error) {
		<-ctx.Done()
		return runners.Verdict{}, ctx.Err()
	}}

	item := flagsItem("boolean", 0)
	item.Timeout = 50 * time.Millisecond

	w := NewWorker(m.Path(root), adapter.NewLocalSourceFSAdapter(), operators.Default(), newRunners(hang))
	result := w.Run(context.Background(), item)

	assert.Equal(t, m.WorkResult{Outcome: m.Exception, Data: "timeout after 50ms"}, result)
}

func TestWorker_RunReportsAdapterTimeout(t *testing.T) {
	root := writeProject(t, map[string]string{flagsModule: flagsSrc})

	slow := fakeRunner{name: "fake", run: func(context.Context, string, []string) (runners.Verdict, error) {
		return runners.Verdict{}, adapter.ErrCommandTimeout
	}}

	w := NewWorker(m.Path(root), adapter.NewLocalSourceFSAdapter(), operators.Default(), newRunners(slow))
	result := w.Run(context.Background(), flagsItem("boolean", 1))

	assert.Equal(t, m.Exception, result.Outcome)
	assert.Equal(t, "timeout after 1m0s", result.Data)
}
