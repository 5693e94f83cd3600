package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/orbit/internal/domain"
	m "gooze.dev/pkg/orbit/internal/model"
	"gooze.dev/pkg/orbit/internal/storage"
)

const initLongDescription = `Create or replace a session with one work item per mutation site.

Any results already recorded in the session are discarded. The per item
timeout is either given with --timeout or derived from a baseline run of the
unmutated tests with --baseline MULTIPLIER.

` + sessionArgsHelp

var initTestRunnerFlag string
var initTimeoutFlag time.Duration
var initBaselineFlag float64
var initOperatorFlags []string

// sessionArgs is the positional part shared by init and run.
type sessionArgs struct {
	session  string
	patterns []string
	testArgs []string
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <session> [patterns...] [-- test-args...]",
		Short: "Create a session from the project's mutation sites",
		Long:  initLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sa, err := parseSessionArgs(cmd, args)
			if err != nil {
				return err
			}

			initArgs, err := prepareSession(cmd, sa)
			if err != nil {
				return err
			}

			return withWorkDB(cmd.Context(), sa.session, storage.ModeCreate, func(db storage.WorkDB) error {
				_, err := initializeSession(cmd, db, sa.session, initArgs)
				return err
			})
		},
	}

	configureInitFlags(cmd)

	return cmd
}

func configureInitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&initTestRunnerFlag, testRunnerFlagName, "r", viper.GetString(initTestRunnerKey), "test runner judging each mutant")
	bindFlagToConfig(cmd.Flags().Lookup(testRunnerFlagName), initTestRunnerKey)

	cmd.Flags().DurationVarP(&initTimeoutFlag, timeoutFlagName, "t", viper.GetDuration(initTimeoutKey), "maximum duration of one mutant's test run")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), initTimeoutKey)

	cmd.Flags().Float64Var(&initBaselineFlag, baselineFlagName, viper.GetFloat64(initBaselineKey), "derive the timeout as MULTIPLIER times a baseline test run")
	bindFlagToConfig(cmd.Flags().Lookup(baselineFlagName), initBaselineKey)

	cmd.Flags().StringArrayVarP(&initOperatorFlags, operatorFlagName, "o", viper.GetStringSlice(initOperatorsKey), "operator to apply (can be repeated, default all)")
	bindFlagToConfig(cmd.Flags().Lookup(operatorFlagName), initOperatorsKey)

	cmd.MarkFlagsMutuallyExclusive(timeoutFlagName, baselineFlagName)
}

// parseSessionArgs splits "<session> [patterns...] [-- test-args...]".
func parseSessionArgs(cmd *cobra.Command, args []string) (sessionArgs, error) {
	positional, testArgs := args, []string(nil)

	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, testArgs = args[:dash], args[dash:]
	}

	if len(positional) == 0 {
		return sessionArgs{}, fmt.Errorf("%w: a session name is required before --", domain.ErrInvalidArgs)
	}

	return sessionArgs{
		session:  positional[0],
		patterns: positional[1:],
		testArgs: testArgs,
	}, nil
}

// prepareSession resolves everything init needs before a session is opened,
// so configuration errors leave the work database untouched.
func prepareSession(cmd *cobra.Command, sa sessionArgs) (domain.InitArgs, error) {
	ctx := cmd.Context()

	root, err := workflow.FindProjectRoot(m.Path(configFolderPath))
	if err != nil {
		return domain.InitArgs{}, fmt.Errorf("failed to find project root: %w", err)
	}

	modules, err := workflow.FindModules(ctx, root, sa.patterns, viper.GetStringSlice(excludeConfigKey))
	if err != nil {
		return domain.InitArgs{}, err
	}

	runner := viper.GetString(initTestRunnerKey)
	if _, err := runnerRegistry.Get(runner); err != nil {
		return domain.InitArgs{}, err
	}

	operatorNames := viper.GetStringSlice(initOperatorsKey)
	if _, err := operatorRegistry.Select(operatorNames...); err != nil {
		return domain.InitArgs{}, err
	}

	timeout, err := sessionTimeout(ctx, root, runner, sa.testArgs)
	if err != nil {
		return domain.InitArgs{}, err
	}

	return domain.InitArgs{
		Modules:   modules,
		Operators: operatorNames,
		Config: m.SessionConfig{
			Root:       string(root),
			TestRunner: runner,
			TestArgs:   sa.testArgs,
			Timeout:    timeout,
		},
	}, nil
}

// initializeSession populates db from args prepared by prepareSession.
func initializeSession(cmd *cobra.Command, db storage.WorkDB, session string, args domain.InitArgs) (int, error) {
	count, err := workflow.Init(cmd.Context(), db, args)
	if err != nil {
		return 0, err
	}

	timeout := args.Config.Timeout

	slog.Info("Session initialized", "session", session, "items", count, "modules", len(args.Modules), "timeout", timeout)
	cmd.Printf("Initialized session %s: %d work item(s) in %d module(s), timeout %s\n", session, count, len(args.Modules), timeout)

	return count, nil
}

func sessionTimeout(ctx context.Context, root m.Path, runner string, testArgs []string) (time.Duration, error) {
	multiplier := viper.GetFloat64(initBaselineKey)
	if multiplier < 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %g", domain.ErrInvalidTimeout, baselineFlagName, multiplier)
	}

	if multiplier == 0 {
		timeout := viper.GetDuration(initTimeoutKey)
		if timeout <= 0 {
			return 0, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidTimeout, timeoutFlagName)
		}

		return timeout, nil
	}

	elapsed, err := workflow.Baseline(ctx, root, runner, testArgs)
	if err != nil {
		return 0, err
	}

	return domain.TimeoutFromBaseline(multiplier, elapsed)
}
