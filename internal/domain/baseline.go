package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	m "gooze.dev/pkg/orbit/internal/model"
)

// Baseline times an unmutated test run.
type Baseline interface {
	Run(ctx context.Context, root m.Path, runner string, args []string) (time.Duration, error)
}

type baseline struct {
	runners RunnerCatalog
	now     func() time.Time
}

// NewBaseline constructs a Baseline resolving runners from rs.
func NewBaseline(rs RunnerCatalog) Baseline {
	return &baseline{runners: rs, now: time.Now}
}

func (b *baseline) Run(ctx context.Context, root m.Path, runner string, args []string) (time.Duration, error) {
	tr, err := b.runners.Get(runner)
	if err != nil {
		return 0, err
	}

	started := b.now()

	verdict, err := tr.Run(ctx, string(root), args)
	if err != nil {
		slog.Error("Baseline run failed", "runner", runner, "error", err)
		return 0, fmt.Errorf("%w: %w", ErrBaselineFailed, err)
	}

	elapsed := b.now().Sub(started)

	if !verdict.Passed {
		slog.Error("Baseline tests fail without mutations", "runner", runner, "output", verdict.Output)
		return 0, fmt.Errorf("%w: tests fail without mutations:\n%s", ErrBaselineFailed, verdict.Output)
	}

	slog.Info("Baseline completed", "runner", runner, "elapsed", elapsed)

	return elapsed, nil
}

// TimeoutFromBaseline scales a baseline duration into a per-item timeout.
func TimeoutFromBaseline(multiplier float64, baseline time.Duration) (time.Duration, error) {
	if multiplier <= 0 {
		return 0, fmt.Errorf("%w: multiplier must be positive, got %g", ErrInvalidTimeout, multiplier)
	}

	timeout := time.Duration(multiplier * float64(baseline))
	if timeout <= 0 {
		return 0, fmt.Errorf("%w: baseline of %s gives no time to run", ErrInvalidTimeout, baseline)
	}

	return timeout, nil
}
