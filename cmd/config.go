package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"gooze.dev/pkg/orbit/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "orbit"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."
	envPrefix        = "ORBIT"

	dbBackendFlagName   = "db-backend"
	dbDirFlagName       = "db-dir"
	runnersFileFlagName = "runners-file"
	verboseFlagName     = "verbose"
	excludeFlagName     = "exclude"
	operatorFlagName    = "operator"
	testRunnerFlagName  = "test-runner"
	timeoutFlagName     = "timeout"
	baselineFlagName    = "baseline"
	parallelFlagName    = "parallel"
	isolationFlagName   = "isolation"
	rateFlagName        = "rate"
	claimTTLFlagName    = "claim-ttl"
	metricsAddrFlagName = "metrics-addr"

	dbBackendKey       = "db.backend"
	dbDirKey           = "db.dir"
	dbRedisAddrKey     = "db.redis.addr"
	dbRedisPasswordKey = "db.redis.password"
	dbRedisDBKey       = "db.redis.db"
	dbRedisPrefixKey   = "db.redis.prefix"
	dbPostgresDSNKey   = "db.postgres.dsn"
	initTestRunnerKey  = "init.test_runner"
	initTimeoutKey     = "init.timeout"
	initOperatorsKey   = "init.operators"
	initBaselineKey    = "init.baseline"
	execParallelKey    = "exec.parallel"
	execIsolationKey   = "exec.isolation"
	execRateKey        = "exec.rate"
	execClaimTTLKey    = "exec.claim_ttl"
	runnersFileKey     = "runners.file"
	excludeConfigKey   = "paths.exclude"
	metricsAddrKey     = "metrics.addr"

	backendFile     = "file"
	backendRedis    = "redis"
	backendPostgres = "postgres"

	defaultDBDir       = ".orbit"
	defaultRedisAddr   = "localhost:6379"
	defaultRedisPrefix = "orbit:"
	defaultTestRunner  = "gotest"
	defaultTimeout     = 2 * time.Minute
	defaultRunnersFile = "orbit-runners.yaml"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".orbit.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(dbBackendKey, backendFile)
	viper.SetDefault(dbDirKey, defaultDBDir)
	viper.SetDefault(dbRedisAddrKey, defaultRedisAddr)
	viper.SetDefault(dbRedisPasswordKey, "")
	viper.SetDefault(dbRedisDBKey, 0)
	viper.SetDefault(dbRedisPrefixKey, defaultRedisPrefix)
	viper.SetDefault(dbPostgresDSNKey, "")

	viper.SetDefault(initTestRunnerKey, defaultTestRunner)
	viper.SetDefault(initTimeoutKey, defaultTimeout)
	viper.SetDefault(initOperatorsKey, []string{})
	viper.SetDefault(initBaselineKey, 0.0)

	viper.SetDefault(execParallelKey, runtime.GOMAXPROCS(0))
	viper.SetDefault(execIsolationKey, domain.IsolationLocal)
	viper.SetDefault(execRateKey, 0.0)
	viper.SetDefault(execClaimTTLKey, time.Duration(0))

	viper.SetDefault(runnersFileKey, defaultRunnersFile)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(metricsAddrKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "orbit: ignoring %s: %v\n", configFileName, err)
		}
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the global slog logger at a rotating log file.
// Standard output is left to command results.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
