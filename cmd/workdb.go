package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"gooze.dev/pkg/orbit/internal/storage"
	"gooze.dev/pkg/orbit/internal/storage/file"
	"gooze.dev/pkg/orbit/internal/storage/postgres"
	"gooze.dev/pkg/orbit/internal/storage/redis"
)

const tracerName = "gooze.dev/pkg/orbit/storage"

// openWorkDB opens a session on the configured backend. Tests replace it.
var openWorkDB = openConfiguredWorkDB

func openConfiguredWorkDB(ctx context.Context, session string, mode storage.Mode) (storage.WorkDB, error) {
	tracer := otel.Tracer(tracerName)

	switch backend := viper.GetString(dbBackendKey); backend {
	case backendFile:
		db, err := file.Open(ctx, viper.GetString(dbDirKey), session, mode, file.WithTracer(tracer))
		if err != nil {
			return nil, err
		}

		return db, nil
	case backendRedis:
		db, err := redis.New(ctx, redis.Config{
			Addr:     viper.GetString(dbRedisAddrKey),
			Password: viper.GetString(dbRedisPasswordKey),
			DB:       viper.GetInt(dbRedisDBKey),
			Prefix:   viper.GetString(dbRedisPrefixKey),
		}, session, mode, redis.WithTracer(tracer))
		if err != nil {
			return nil, err
		}

		return db, nil
	case backendPostgres:
		dsn := viper.GetString(dbPostgresDSNKey)
		if dsn == "" {
			return nil, fmt.Errorf("%s must be set for the %s backend", dbPostgresDSNKey, backendPostgres)
		}

		db, err := postgres.New(ctx, dsn, session, mode, postgres.WithTracer(tracer))
		if err != nil {
			return nil, err
		}

		return db, nil
	default:
		return nil, fmt.Errorf("unknown %s %q", dbBackendKey, backend)
	}
}

// withWorkDB opens session, runs fn and closes the session again.
func withWorkDB(ctx context.Context, session string, mode storage.Mode, fn func(storage.WorkDB) error) error {
	db, err := openWorkDB(ctx, session, mode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("session %q does not exist, create it with init: %w", session, err)
		}

		return fmt.Errorf("failed to open session %q: %w", session, err)
	}

	fnErr := fn(db)

	if err := db.Close(); err != nil {
		slog.Error("Failed to close session", "session", session, "error", err)

		return errors.Join(fnErr, fmt.Errorf("failed to close session %q: %w", session, err))
	}

	return fnErr
}
