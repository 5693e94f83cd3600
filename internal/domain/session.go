package domain

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-playground/validator/v10"

	"gooze.dev/pkg/orbit/internal/adapter"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

// InitArgs describes the work items of a new session.
type InitArgs struct {
	Modules []m.Module
	// Operators names the operators to apply; empty selects all of them.
	Operators []string `validate:"dive,required"`
	Config    m.SessionConfig
}

// Initializer builds a session's work items.
type Initializer interface {
	// Initialize replaces everything stored in db with one item per
	// (module, operator, occurrence) and returns the number of items.
	// Results of any previous run are destroyed.
	Initialize(ctx context.Context, db storage.WorkDB, args InitArgs) (int, error)

	// Count returns the occurrence count of every operator in every module.
	Count(ctx context.Context, modules []m.Module, operatorNames []string) ([]m.OperatorCount, error)
}

type initializer struct {
	fsAdapter adapter.SourceFSAdapter
	operators OperatorCatalog
	validate  *validator.Validate
}

// NewInitializer constructs an Initializer reading modules through fsAdapter.
func NewInitializer(fsAdapter adapter.SourceFSAdapter, ops OperatorCatalog) Initializer {
	return &initializer{
		fsAdapter: fsAdapter,
		operators: ops,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (i *initializer) Initialize(ctx context.Context, db storage.WorkDB, args InitArgs) (int, error) {
	if err := i.validate.Struct(args); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}

	counts, err := i.Count(ctx, args.Modules, args.Operators)
	if err != nil {
		return 0, err
	}

	var items []m.WorkItem

	for _, c := range counts {
		for occurrence := range c.Count {
			key := m.WorkItemKey{Module: c.Module, Operator: c.Operator, Occurrence: occurrence}
			items = append(items, m.NewWorkItem(key, args.Config))
		}
	}

	if err := db.ResetAndPopulate(ctx, items, args.Config); err != nil {
		slog.Error("Failed to populate session", "items", len(items), "error", err)
		return 0, fmt.Errorf("failed to populate session: %w", err)
	}

	slog.Info("Session initialized", "modules", len(args.Modules), "operators", len(args.Operators), "items", len(items))

	return len(items), nil
}

func (i *initializer) Count(ctx context.Context, modules []m.Module, operatorNames []string) ([]m.OperatorCount, error) {
	ops, err := i.operators.Select(slices.Compact(slices.Sorted(slices.Values(operatorNames)))...)
	if err != nil {
		return nil, err
	}

	counts := make([]m.OperatorCount, 0, len(modules)*len(ops))

	for _, module := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if module.Origin == nil {
			return nil, fmt.Errorf("module %s has no origin", module.Name)
		}

		src, err := i.fsAdapter.ReadFile(module.Origin.FullPath)
		if err != nil {
			slog.Error("Failed to read module", "module", module.Name, "error", err)
			return nil, fmt.Errorf("failed to read module %s: %w", module.Name, err)
		}

		for _, op := range ops {
			n, err := op.Count(src)
			if err != nil {
				slog.Error("Failed to count occurrences", "module", module.Name, "operator", op.Name(), "error", err)
				return nil, fmt.Errorf("failed to count %s in %s: %w", op.Name(), module.Name, err)
			}

			counts = append(counts, m.OperatorCount{Module: module.Name, Operator: op.Name(), Count: n})
		}
	}

	return counts, nil
}
