// Package cmd provides the root command and CLI setup for orbit.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/orbit/internal/adapter"
	"gooze.dev/pkg/orbit/internal/controller"
	"gooze.dev/pkg/orbit/internal/domain"
	"gooze.dev/pkg/orbit/internal/domain/operators"
	"gooze.dev/pkg/orbit/internal/domain/runners"
)

var fsAdapter adapter.SourceFSAdapter
var testAdapter adapter.TestRunnerAdapter
var operatorRegistry *operators.Registry
var runnerRegistry *runners.Registry
var workflow domain.Workflow
var ui controller.UI

// verboseFlag switches logging to debug level.
var verboseFlag bool

// excludePatterns is a root-level flag that filters modules for applicable commands.
var excludePatterns []string

var dbBackendFlag string
var dbDirFlag string
var runnersFileFlag string

// configKeyAnnotation records the viper key a flag is bound to.
const configKeyAnnotation = "orbit_config_key"

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.New(rootCmd, true)
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	testAdapter = adapter.NewLocalTestRunnerAdapter()
	operatorRegistry = operators.Default()
	runnerRegistry = runners.NewRegistry(testAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		testAdapter,
		operatorRegistry,
		runnerRegistry,
		ui,
	)

	rootCmd.AddCommand(
		newInitCmd(),
		newExecCmd(),
		newRunCmd(),
		newReportCmd(),
		newSurvivalRateCmd(),
		newWorkerCmd(),
		newBaselineCmd(),
		newCountsCmd(),
		newOperatorsCmd(),
		newTestRunnersCmd(),
		newLoadCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

const pathPatternsHelp = `Modules are selected with Go-style path patterns relative to the project root:
  - ./...          every Go file below the project root (default)
  - ./pkg/...      every Go file below pkg
  - ./cmd ./pkg    the Go files of several directories`

const rootLongDescription = `Orbit is a session based mutation testing tool for Go.

A session enumerates one work item per mutation site, stores them in a work
database and executes them with a pool of workers. Interrupted sessions resume
where they stopped: only items without a result are executed again.`

const sessionArgsHelp = `Arguments after -- are passed to the test runner.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orbit",
		Short: "Session based mutation testing for Go",
		Long:  rootLongDescription,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := rebindFlags(cmd); err != nil {
				return err
			}

			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))

			return runnerRegistry.LoadFile(viper.GetString(runnersFileKey), testAdapter)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&dbBackendFlag, dbBackendFlagName, viper.GetString(dbBackendKey), "work database backend: file, redis or postgres")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(dbBackendFlagName), dbBackendKey)

	cmd.PersistentFlags().StringVar(&dbDirFlag, dbDirFlagName, viper.GetString(dbDirKey), "directory of the file backend sessions")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(dbDirFlagName), dbDirKey)

	cmd.PersistentFlags().StringVar(&runnersFileFlag, runnersFileFlagName, viper.GetString(runnersFileKey), "YAML file declaring additional test runners")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(runnersFileFlagName), runnersFileKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude modules matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	if flag.Annotations == nil {
		flag.Annotations = map[string][]string{}
	}

	flag.Annotations[configKeyAnnotation] = []string{key}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// rebindFlags points every config key at the flag of the command being
// executed. Commands sharing a key (init and run, exec and run) each own a
// flag, and only the running one may feed viper.
func rebindFlags(cmd *cobra.Command) error {
	var err error

	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		keys, ok := flag.Annotations[configKeyAnnotation]
		if !ok || err != nil {
			return
		}

		err = viper.BindPFlag(keys[0], flag)
	})

	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
