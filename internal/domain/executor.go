package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gooze.dev/pkg/orbit/internal/controller"
	"gooze.dev/pkg/orbit/internal/metrics"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

// ExecArgs configures one executor run.
type ExecArgs struct {
	// Parallel is the number of items dispatched at once.
	Parallel int `validate:"gte=1"`
	// Rate caps dispatches per second; zero means unlimited.
	Rate float64 `validate:"gte=0"`
	// ClaimTTL bounds how long a claimed item stays reserved on shared
	// backends; zero derives it from the item timeout.
	ClaimTTL time.Duration `validate:"gte=0"`
}

// Executor drains the pending items of a session.
type Executor interface {
	// Execute records a result for every pending item and returns the counts
	// of this run. Only storage errors and cancellation abort it; items
	// interrupted by cancellation stay pending.
	Execute(ctx context.Context, db storage.WorkDB, dispatcher Dispatcher, args ExecArgs) (m.Summary, error)
}

type executor struct {
	ui       controller.UI
	recorder metrics.Recorder
	validate *validator.Validate
}

// NewExecutor constructs an Executor reporting progress to ui and recorder.
func NewExecutor(ui controller.UI, recorder metrics.Recorder) Executor {
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	return &executor{
		ui:       ui,
		recorder: recorder,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type runState struct {
	mu      sync.Mutex
	summary m.Summary
	slots   chan int
	limiter *rate.Limiter
	claimer storage.Claimer
	ttl     time.Duration
}

func (e *executor) Execute(ctx context.Context, db storage.WorkDB, dispatcher Dispatcher, args ExecArgs) (m.Summary, error) {
	if err := e.validate.Struct(args); err != nil {
		return m.Summary{}, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}

	before, err := Summarize(ctx, db)
	if err != nil {
		return m.Summary{}, err
	}

	e.ui.DisplayConcurrencyInfo(ctx, args.Parallel, before.Pending, before.Total)
	e.recorder.SetPending(before.Pending)

	state := &runState{
		slots: make(chan int, args.Parallel),
		ttl:   args.ClaimTTL,
	}

	for i := range args.Parallel {
		state.slots <- i
	}

	if args.Rate > 0 {
		state.limiter = rate.NewLimiter(rate.Limit(args.Rate), 1)
	}

	if claimer, ok := db.(storage.Claimer); ok {
		state.claimer = claimer
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(args.Parallel)

	var iterErr error

	for item, err := range db.PendingItems(groupCtx) {
		if err != nil {
			iterErr = err
			break
		}

		if state.limiter != nil {
			if err := state.limiter.Wait(groupCtx); err != nil {
				iterErr = err
				break
			}
		}

		group.Go(func() error {
			return e.process(groupCtx, db, dispatcher, item, state)
		})
	}

	waitErr := group.Wait()

	state.mu.Lock()
	summary := state.summary
	state.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if waitErr != nil {
		return summary, waitErr
	}

	if iterErr != nil {
		e.recorder.IncStorageErrors()
		slog.Error("Failed to read pending items", "error", iterErr)

		return summary, fmt.Errorf("failed to read pending items: %w", iterErr)
	}

	return summary, nil
}

func (e *executor) process(ctx context.Context, db storage.WorkDB, dispatcher Dispatcher, item m.WorkItem, state *runState) error {
	if ctx.Err() != nil {
		return nil
	}

	if state.claimer != nil {
		release, ok, err := state.claimer.Claim(ctx, item.WorkItemKey, state.claimTTL(item))
		if err != nil {
			e.recorder.IncStorageErrors()
			slog.Error("Failed to claim work item", "key", item.WorkItemKey.String(), "error", err)

			return fmt.Errorf("failed to claim %s: %w", item.WorkItemKey, err)
		}

		if !ok {
			slog.Debug("Work item claimed elsewhere", "key", item.WorkItemKey.String())
			return nil
		}

		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to release claim", "key", item.WorkItemKey.String(), "error", err)
			}
		}()
	}

	slot := <-state.slots
	defer func() { state.slots <- slot }()

	e.ui.DisplayStartingTestInfo(ctx, item, slot)
	e.recorder.IncInFlight()
	defer e.recorder.DecInFlight()

	started := time.Now()

	result, err := dispatcher.Dispatch(ctx, item)
	if ctx.Err() != nil {
		return nil
	}

	if err != nil {
		slog.Warn("Dispatch failed", "key", item.WorkItemKey.String(), "error", err)
		result = exceptionResult(err)
	}

	if err := db.AddResult(ctx, item.WorkItemKey, result); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}

		e.recorder.IncStorageErrors()
		slog.Error("Failed to record result", "key", item.WorkItemKey.String(), "error", err)

		return fmt.Errorf("failed to record result for %s: %w", item.WorkItemKey, err)
	}

	e.recorder.ObserveResult(item.Operator, result.Outcome, time.Since(started))
	e.ui.DisplayCompletedTestInfo(ctx, item, result)

	state.mu.Lock()
	state.summary.Add(&result)
	state.mu.Unlock()

	return nil
}

func (s *runState) claimTTL(item m.WorkItem) time.Duration {
	if s.ttl > 0 {
		return s.ttl
	}

	return 2*item.Timeout + DefaultWorkerGrace
}
