package domain

import (
	"context"
	"fmt"
	"time"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/controller"
	"gooze.dev/pkg/orbit/internal/metrics"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

// Isolation values for WorkflowExecArgs.
const (
	IsolationLocal   = "local"
	IsolationProcess = "process"
)

// WorkflowExecArgs selects how Exec dispatches work items.
type WorkflowExecArgs struct {
	ExecArgs
	// Isolation is IsolationLocal (default) or IsolationProcess.
	Isolation string
	// Executable and WorkerArgs start worker processes under IsolationProcess.
	Executable string
	WorkerArgs []string
	Recorder   metrics.Recorder
}

// Workflow is the set of session operations exposed to the command line.
type Workflow interface {
	FindProjectRoot(start m.Path) (m.Path, error)
	FindModules(ctx context.Context, root m.Path, patterns, exclude []string) ([]m.Module, error)
	Counts(ctx context.Context, modules []m.Module, operatorNames []string) ([]m.OperatorCount, error)
	Init(ctx context.Context, db storage.WorkDB, args InitArgs) (int, error)
	Exec(ctx context.Context, db storage.WorkDB, args WorkflowExecArgs) (m.Summary, error)
	Report(ctx context.Context, db storage.WorkDB, opts ReportOptions) ([]string, error)
	SurvivalRate(ctx context.Context, db storage.WorkDB) (float64, error)
	Summarize(ctx context.Context, db storage.WorkDB) (m.Summary, error)
	Baseline(ctx context.Context, root m.Path, runner string, args []string) (time.Duration, error)
	// RunWorker fails only for unknown operators or runners.
	RunWorker(ctx context.Context, root m.Path, item m.WorkItem) (m.WorkResult, error)
	OperatorNames() []string
	RunnerNames() []string
}

type workflow struct {
	fsAdapter   adapter.SourceFSAdapter
	testAdapter adapter.TestRunnerAdapter
	operators   OperatorCatalog
	runners     RunnerCatalog
	ui          controller.UI
	initializer Initializer
	reporter    Reporter
	baseline    Baseline
}

// NewWorkflow creates a Workflow from its adapters and catalogs.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	testAdapter adapter.TestRunnerAdapter,
	ops OperatorCatalog,
	rs RunnerCatalog,
	ui controller.UI,
) Workflow {
	return &workflow{
		fsAdapter:   fsAdapter,
		testAdapter: testAdapter,
		operators:   ops,
		runners:     rs,
		ui:          ui,
		initializer: NewInitializer(fsAdapter, ops),
		reporter:    NewReporter(fsAdapter, ops),
		baseline:    NewBaseline(rs),
	}
}

func (w *workflow) FindProjectRoot(start m.Path) (m.Path, error) {
	return w.fsAdapter.FindProjectRoot(start)
}

func (w *workflow) FindModules(ctx context.Context, root m.Path, patterns, exclude []string) ([]m.Module, error) {
	return w.fsAdapter.FindModules(ctx, root, patterns, exclude)
}

func (w *workflow) Counts(ctx context.Context, modules []m.Module, operatorNames []string) ([]m.OperatorCount, error) {
	return w.initializer.Count(ctx, modules, operatorNames)
}

func (w *workflow) Init(ctx context.Context, db storage.WorkDB, args InitArgs) (int, error) {
	if _, err := w.runners.Get(args.Config.TestRunner); err != nil {
		return 0, err
	}

	return w.initializer.Initialize(ctx, db, args)
}

func (w *workflow) Exec(ctx context.Context, db storage.WorkDB, args WorkflowExecArgs) (m.Summary, error) {
	cfg, err := db.Config(ctx)
	if err != nil {
		return m.Summary{}, fmt.Errorf("failed to read session config: %w", err)
	}

	root := m.Path(cfg.Root)

	var dispatcher Dispatcher

	switch args.Isolation {
	case "", IsolationLocal:
		dispatcher = NewLocalDispatcher(NewWorker(root, w.fsAdapter, w.operators, w.runners))
	case IsolationProcess:
		if args.Executable == "" {
			return m.Summary{}, fmt.Errorf("%w: process isolation requires an executable", ErrInvalidArgs)
		}

		dispatcher = NewProcessDispatcher(args.Executable, args.WorkerArgs, root, DefaultWorkerGrace, w.testAdapter)
	default:
		return m.Summary{}, fmt.Errorf("%w: unknown isolation %q", ErrInvalidArgs, args.Isolation)
	}

	if err := w.ui.Start(ctx, controller.WithExecMode()); err != nil {
		return m.Summary{}, err
	}
	defer w.ui.Close(context.WithoutCancel(ctx))

	return NewExecutor(w.ui, args.Recorder).Execute(ctx, db, dispatcher, args.ExecArgs)
}

func (w *workflow) Report(ctx context.Context, db storage.WorkDB, opts ReportOptions) ([]string, error) {
	return w.reporter.CreateReport(ctx, db, opts)
}

func (w *workflow) SurvivalRate(ctx context.Context, db storage.WorkDB) (float64, error) {
	return w.reporter.SurvivalRate(ctx, db)
}

func (w *workflow) Summarize(ctx context.Context, db storage.WorkDB) (m.Summary, error) {
	return w.reporter.Summarize(ctx, db)
}

func (w *workflow) Baseline(ctx context.Context, root m.Path, runner string, args []string) (time.Duration, error) {
	return w.baseline.Run(ctx, root, runner, args)
}

func (w *workflow) RunWorker(ctx context.Context, root m.Path, item m.WorkItem) (m.WorkResult, error) {
	if _, err := w.operators.Get(item.Operator); err != nil {
		return m.WorkResult{}, err
	}

	if _, err := w.runners.Get(item.TestRunner); err != nil {
		return m.WorkResult{}, err
	}

	return NewWorker(root, w.fsAdapter, w.operators, w.runners).Run(ctx, item), nil
}

func (w *workflow) OperatorNames() []string {
	return w.operators.Names()
}

func (w *workflow) RunnerNames() []string {
	return w.runners.Names()
}
