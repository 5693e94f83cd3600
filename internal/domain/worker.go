package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/domain/operators"
	"gooze.dev/pkg/orbit/internal/domain/runners"
	m "gooze.dev/pkg/orbit/internal/model"
)

// OperatorCatalog resolves operators by name.
type OperatorCatalog interface {
	Get(name string) (operators.Operator, error)
	// Select resolves names in order; no names selects every operator.
	Select(names ...string) ([]operators.Operator, error)
	Names() []string
}

// RunnerCatalog resolves test runners by name.
type RunnerCatalog interface {
	Get(name string) (runners.TestRunner, error)
	Names() []string
}

// Worker applies one work item's mutation to a private copy of the project
// and judges it with the item's test runner.
type Worker interface {
	// Run never fails: problems are reported as an exception result.
	Run(ctx context.Context, item m.WorkItem) m.WorkResult
}

type worker struct {
	root      m.Path
	fsAdapter adapter.SourceFSAdapter
	operators OperatorCatalog
	runners   RunnerCatalog
}

// NewWorker constructs a Worker for modules relative to root.
func NewWorker(root m.Path, fsAdapter adapter.SourceFSAdapter, ops OperatorCatalog, rs RunnerCatalog) Worker {
	return &worker{
		root:      root,
		fsAdapter: fsAdapter,
		operators: ops,
		runners:   rs,
	}
}

func (w *worker) Run(ctx context.Context, item m.WorkItem) m.WorkResult {
	slog.Debug("Running work item", "key", item.WorkItemKey.String(), "runner", item.TestRunner)

	runner, err := w.runners.Get(item.TestRunner)
	if err != nil {
		return exceptionResult(err)
	}

	mutant, err := w.mutate(item)
	if err != nil {
		return exceptionResult(err)
	}

	tmpDir, err := w.prepareWorkspace()
	if tmpDir != "" {
		defer w.cleanupTempDir(tmpDir)
	}

	if err != nil {
		return exceptionResult(err)
	}

	mutantPath := w.fsAdapter.JoinPath(string(tmpDir), filepath.FromSlash(item.Module))
	if err := w.writeMutatedFile(mutantPath, mutant); err != nil {
		return exceptionResult(err)
	}

	return w.runTests(ctx, runner, tmpDir, item)
}

// Mutate returns the original and the mutated source of the module key refers to.
func Mutate(fsAdapter adapter.SourceFSAdapter, ops OperatorCatalog, root m.Path, key m.WorkItemKey) ([]byte, []byte, error) {
	op, err := ops.Get(key.Operator)
	if err != nil {
		return nil, nil, err
	}

	src, err := fsAdapter.ReadFile(fsAdapter.JoinPath(string(root), filepath.FromSlash(key.Module)))
	if err != nil {
		slog.Error("Failed to read module", "module", key.Module, "error", err)
		return nil, nil, fmt.Errorf("failed to read module %s: %w", key.Module, err)
	}

	mutant, err := op.Apply(src, key.Occurrence)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply %s to %s: %w", key.Operator, key.Module, err)
	}

	return src, mutant, nil
}

func (w *worker) mutate(item m.WorkItem) ([]byte, error) {
	_, mutant, err := Mutate(w.fsAdapter, w.operators, w.root, item.WorkItemKey)

	return mutant, err
}

func (w *worker) prepareWorkspace() (m.Path, error) {
	tmpDir, err := w.fsAdapter.CreateTempDir("orbit-mutant-*")
	if err != nil {
		slog.Error("Failed to create temp dir", "error", err)
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	if err := w.fsAdapter.CopyDir(w.root, tmpDir); err != nil {
		slog.Error("Failed to copy project to temp dir", "root", w.root, "tmpDir", tmpDir, "error", err)
		return tmpDir, fmt.Errorf("failed to copy project: %w", err)
	}

	return tmpDir, nil
}

func (w *worker) writeMutatedFile(path m.Path, content []byte) error {
	if err := w.fsAdapter.WriteFile(path, content, 0o600); err != nil {
		slog.Error("Failed to write mutated file", "path", path, "error", err)
		return fmt.Errorf("failed to write mutated file: %w", err)
	}

	return nil
}

func (w *worker) runTests(ctx context.Context, runner runners.TestRunner, dir m.Path, item m.WorkItem) m.WorkResult {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if item.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, item.Timeout)
	}
	defer cancel()

	verdict, err := runner.Run(runCtx, string(dir), item.TestArgs)
	if err != nil {
		if ctx.Err() == nil && (errors.Is(err, adapter.ErrCommandTimeout) || errors.Is(runCtx.Err(), context.DeadlineExceeded)) {
			return m.WorkResult{Outcome: m.Exception, Data: fmt.Sprintf("timeout after %s", item.Timeout)}
		}

		return exceptionResult(err)
	}

	if verdict.Passed {
		return m.WorkResult{Outcome: m.Survived, Data: verdict.Output}
	}

	return m.WorkResult{Outcome: m.Killed, Data: verdict.Output}
}

// cleanupTempDir removes the temporary directory, logging errors if cleanup fails.
func (w *worker) cleanupTempDir(tmpDir m.Path) {
	if err := w.fsAdapter.RemoveAll(tmpDir); err != nil {
		slog.Error("Failed to cleanup temp dir", "tmpDir", tmpDir, "error", err)
	}
}

func exceptionResult(err error) m.WorkResult {
	return m.WorkResult{Outcome: m.Exception, Data: err.Error()}
}
