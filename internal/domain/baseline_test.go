package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/orbit/internal/domain/runners"
)

func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestBaseline_Run(t *testing.T) {
	var seenDir string

	runner := fakeRunner{name: "fake", run: func(_ context.Context, dir string, _ []string) (runners.Verdict, error) {
		seenDir = dir
		return runners.Verdict{Passed: true}, nil
	}}

	b := &baseline{runners: newRunners(runner), now: steppingClock(1500 * time.Millisecond)}

	elapsed, err := b.Run(context.Background(), "/src", "fake", nil)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, elapsed)
	assert.Equal(t, "/src", seenDir)
}

func TestBaseline_RunErrors(t *testing.T) {
	tests := []struct {
		name    string
		runner  string
		verdict runners.Verdict
		err     error
		wantErr error
	}{
		{
			name:    "failing tests",
			runner:  "fake",
			verdict: runners.Verdict{Passed: false, Output: "FAIL"},
			wantErr: ErrBaselineFailed,
		},
		{
			name:    "runner crash",
			runner:  "fake",
			err:     assert.AnError,
			wantErr: ErrBaselineFailed,
		},
		{
			name:    "unknown runner",
			runner:  "missing",
			wantErr: runners.ErrUnknownTestRunner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := fakeRunner{name: "fake", run: func(context.Context, string, []string) (runners.Verdict, error) {
				return tt.verdict, tt.err
			}}

			_, err := NewBaseline(newRunners(runner)).Run(context.Background(), "/src", tt.runner, nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTimeoutFromBaseline(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		baseline   time.Duration
		want       time.Duration
		wantErr    bool
	}{
		{name: "scaled", multiplier: 3, baseline: 2 * time.Second, want: 6 * time.Second},
		{name: "fractional", multiplier: 1.5, baseline: time.Second, want: 1500 * time.Millisecond},
		{name: "zero multiplier", multiplier: 0, baseline: time.Second, wantErr: true},
		{name: "negative multiplier", multiplier: -2, baseline: time.Second, wantErr: true},
		{name: "zero baseline", multiplier: 2, baseline: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimeoutFromBaseline(tt.multiplier, tt.baseline)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeout)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
