package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/logging"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/storage"
	"github.com/tinoosan/shopledger/internal/storage/memory"
	"github.com/tinoosan/shopledger/internal/storage/postgres"
	"github.com/tinoosan/shopledger/internal/storage/sqlite"
)

// app is the process-wide wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	roles  config.Roles
	store  storage.Store
	logger *slog.Logger
}

// bootstrap loads configuration and opens the configured store. When autoSeed is set and
// SEED_CHART is true the default chart is created. Logs go to logOut so report commands
// can keep stdout for JSON.
func bootstrap(ctx context.Context, logOut io.Writer, autoSeed bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithWriter(logOut, cfg.LogLevel, cfg.LogFormat)

	roles, err := config.ResolveRoles(cfg.RolesFile)
	if err != nil {
		return nil, err
	}
	if err := roles.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("storage backend", "driver", cfg.StoreDriver)

	a := &app{cfg: cfg, roles: roles, store: store, logger: logger}
	if autoSeed && cfg.SeedChart {
		n, err := account.New(store, roles).SeedDefaults(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seeding chart: %w", err)
		}
		if n > 0 {
			logger.Info("seeded default chart", "accounts", n)
		}
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.DriverSQLite:
		lite, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return memory.New(), nil
	}
}

func (a *app) Close() error { return a.store.Close() }
