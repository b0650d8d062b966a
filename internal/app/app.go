// Package app wires the concrete adapters behind the engine ports.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"surplus-redistribution-service/internal/adapters/distance"
	"surplus-redistribution-service/internal/adapters/lock"
	"surplus-redistribution-service/internal/adapters/repositories"
	"surplus-redistribution-service/internal/config"
	"surplus-redistribution-service/internal/platform/db"
	"surplus-redistribution-service/internal/ports"
	"surplus-redistribution-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Keys of the distributed run lock live under this prefix.
const lockPrefix = "surplus:"

// App holds the long-lived dependencies of a process.
type App struct {
	DB      *sql.DB
	Dialect repositories.Dialect
	Store   *repositories.SQLStore
	Engine  *services.Engine

	redis *redis.Client
}

// Open connects to the database and, when configured, to Redis, then builds
// the engine. Close must be called when done.
func Open(ctx context.Context, cfg config.Config, engineCfg config.EngineConfig) (*App, error) {
	dialect, err := repositories.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}

	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}

	a := &App{
		DB:      conn,
		Dialect: dialect,
		Store:   repositories.NewSQLStore(conn, dialect),
	}

	runLock, err := a.runLock(ctx, cfg.RedisAddr)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open app: %w", err)
	}

	a.Engine = services.NewEngine(services.EngineDeps{
		Locations:  a.Store,
		Inventory:  a.Store,
		Demand:     a.Store,
		Actions:    a.Store,
		Routes:     a.Store,
		Lock:       runLock,
		Distance:   distance.NewHaversineProvider(),
		Accountant: engineCfg.Accountant(),
	}, engineCfg.Settings(cfg.LockTTL))

	return a, nil
}

// runLock uses Redis when an address is configured so that several
// processes sharing a database exclude each other.
func (a *App) runLock(ctx context.Context, addr string) (ports.RunLock, error) {
	if addr == "" {
		slog.Info("run lock is process-local", "reason", "REDIS_ADDR not set")
		return lock.NewMemoryRunLock(), nil
	}

	a.redis = redis.NewClient(&redis.Options{Addr: addr})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %q: %w", addr, err)
	}
	slog.Info("run lock is shared", "redis_addr", addr)
	return lock.NewRedisRunLock(a.redis, lockPrefix), nil
}

// InitAndSeed creates the schema and loads seedPath when the file exists.
func (a *App) InitAndSeed(ctx context.Context, seedPath string) error {
	if err := repositories.InitSchema(ctx, a.DB, a.Dialect); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if _, err := os.Stat(seedPath); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("seed file not found, starting with existing data", "path", seedPath)
		return nil
	}
	if err := repositories.SeedFromJSON(ctx, a.DB, a.Dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}
