package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gooze.dev/pkg/orbit/internal/adapter"
	m "gooze.dev/pkg/orbit/internal/model"
)

// DefaultWorkerGrace is added to an item's timeout before a worker process is killed.
const DefaultWorkerGrace = 10 * time.Second

// Dispatcher sends a work item to a worker and receives its result.
type Dispatcher interface {
	Dispatch(ctx context.Context, item m.WorkItem) (m.WorkResult, error)
}

type localDispatcher struct {
	worker Worker
}

// NewLocalDispatcher runs items in this process.
func NewLocalDispatcher(worker Worker) Dispatcher {
	return &localDispatcher{worker: worker}
}

func (d *localDispatcher) Dispatch(ctx context.Context, item m.WorkItem) (m.WorkResult, error) {
	return d.worker.Run(ctx, item), nil
}

type processDispatcher struct {
	executable string
	globalArgs []string
	root       m.Path
	grace      time.Duration
	runner     adapter.TestRunnerAdapter
}

// NewProcessDispatcher runs every item in a fresh "worker" subprocess of
// executable. globalArgs are passed before the worker arguments.
func NewProcessDispatcher(
	executable string,
	globalArgs []string,
	root m.Path,
	grace time.Duration,
	runner adapter.TestRunnerAdapter,
) Dispatcher {
	return &processDispatcher{
		executable: executable,
		globalArgs: slices.Clone(globalArgs),
		root:       root,
		grace:      grace,
		runner:     runner,
	}
}

func (d *processDispatcher) Dispatch(ctx context.Context, item m.WorkItem) (m.WorkResult, error) {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if item.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, item.Timeout+d.grace)
	}
	defer cancel()

	args := slices.Concat(d.globalArgs, WorkerArgs(d.root, item))

	result, err := d.runner.Run(runCtx, string(d.root), d.executable, args, nil)
	if err != nil {
		if ctx.Err() != nil {
			return m.WorkResult{}, ctx.Err()
		}

		if errors.Is(err, adapter.ErrCommandTimeout) {
			return m.WorkResult{Outcome: m.Exception, Data: fmt.Sprintf("timeout after %s", item.Timeout)}, nil
		}

		slog.Warn("Worker process failed", "key", item.WorkItemKey.String(), "error", err)

		return exceptionResult(err), nil
	}

	decoded, err := DecodeResult([]byte(result.Output))
	if err != nil {
		slog.Error("Failed to decode worker result", "key", item.WorkItemKey.String(), "exitCode", result.ExitCode, "error", err)
		return m.WorkResult{}, fmt.Errorf("worker for %s exited with %d: %w", item.WorkItemKey, result.ExitCode, err)
	}

	return decoded, nil
}
