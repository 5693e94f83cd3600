package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/orbit/internal/domain"
	"gooze.dev/pkg/orbit/internal/metrics"
	"gooze.dev/pkg/orbit/internal/storage"
)

const execLongDescription = `Execute the pending work items of a session.

Only items without a result are executed, so an interrupted session resumes
where it stopped. With --isolation process every item runs in a separate
orbit worker process.`

var execParallelFlag int
var execIsolationFlag string
var execRateFlag float64
var execClaimTTLFlag time.Duration
var execMetricsAddrFlag string

// executable locates the binary started for process isolated workers.
var executable = os.Executable

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <session>",
		Short: "Execute the pending work items of a session",
		Long:  execLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkDB(cmd.Context(), args[0], storage.ModeOpen, func(db storage.WorkDB) error {
				return executeSession(cmd, db)
			})
		},
	}

	configureExecFlags(cmd)

	return cmd
}

func configureExecFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&execParallelFlag, parallelFlagName, "p", viper.GetInt(execParallelKey), "number of work items executed concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), execParallelKey)

	cmd.Flags().StringVar(&execIsolationFlag, isolationFlagName, viper.GetString(execIsolationKey), "worker isolation: local or process")
	bindFlagToConfig(cmd.Flags().Lookup(isolationFlagName), execIsolationKey)

	cmd.Flags().Float64Var(&execRateFlag, rateFlagName, viper.GetFloat64(execRateKey), "maximum work items started per second (0 for unlimited)")
	bindFlagToConfig(cmd.Flags().Lookup(rateFlagName), execRateKey)

	cmd.Flags().DurationVar(&execClaimTTLFlag, claimTTLFlagName, viper.GetDuration(execClaimTTLKey), "lease on a claimed item for shared backends (0 derives it from the timeout)")
	bindFlagToConfig(cmd.Flags().Lookup(claimTTLFlagName), execClaimTTLKey)

	cmd.Flags().StringVar(&execMetricsAddrFlag, metricsAddrFlagName, viper.GetString(metricsAddrKey), "serve Prometheus metrics and statsviz on this address")
	bindFlagToConfig(cmd.Flags().Lookup(metricsAddrFlagName), metricsAddrKey)
}

// executeSession runs db's pending items and prints the session totals.
func executeSession(cmd *cobra.Command, db storage.WorkDB) error {
	ctx := cmd.Context()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	args := domain.WorkflowExecArgs{
		ExecArgs: domain.ExecArgs{
			Parallel: viper.GetInt(execParallelKey),
			Rate:     viper.GetFloat64(execRateKey),
			ClaimTTL: viper.GetDuration(execClaimTTLKey),
		},
		Isolation: viper.GetString(execIsolationKey),
		Recorder:  metrics.New(registry),
	}

	if args.Isolation == domain.IsolationProcess {
		exe, err := executable()
		if err != nil {
			return fmt.Errorf("failed to locate the orbit executable: %w", err)
		}

		workerArgs, err := workerGlobalArgs()
		if err != nil {
			return err
		}

		args.Executable, args.WorkerArgs = exe, workerArgs
	}

	if addr := viper.GetString(metricsAddrKey); addr != "" {
		stop, err := serveMetrics(ctx, addr, registry)
		if err != nil {
			return err
		}
		defer stop()
	}

	if _, err := workflow.Exec(ctx, db, args); err != nil {
		if errors.Is(err, context.Canceled) {
			cmd.PrintErrln("Interrupted: completed results are saved, run exec again to resume.")
		}

		return err
	}

	summary, err := workflow.Summarize(ctx, db)
	if err != nil {
		return err
	}

	if err := ui.DisplaySummary(ctx, summary); err != nil {
		return err
	}

	ui.DisplaySurvivalRate(ctx, summary.SurvivalRate())

	return nil
}

// workerGlobalArgs are the root flags a worker process inherits.
func workerGlobalArgs() ([]string, error) {
	var args []string

	if path := viper.GetString(runnersFileKey); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", runnersFileFlagName, err)
		}

		args = append(args, "--"+runnersFileFlagName+"="+abs)
	}

	if viper.GetBool(logVerboseKey) {
		args = append(args, "--"+verboseFlagName)
	}

	return args, nil
}

// serveMetrics starts the metrics server; the returned func stops it.
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) (func(), error) {
	srv, err := metrics.NewServer(addr, gatherer)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := srv.Serve(ctx); err != nil {
			slog.Error("Metrics server failed", "addr", srv.Addr(), "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", srv.Addr())

	return func() {
		cancel()
		<-done
	}, nil
}
