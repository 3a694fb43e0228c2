// Package node runs a standalone ledger: it opens the configured store,
// registers the configured public keys and serves the ledger over gRPC.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/levelstore"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/memory"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/rpc"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/sqlstore"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/node/config"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  ledger.Ledger
	close  func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	store, closeFn, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app := &App{config: c, logger: logger.With("module", "node"), store: store, close: closeFn}

	if err := app.registerKeys(ctx); err != nil {
		_ = closeFn()
		return nil, err
	}

	return app, nil
}

func openStore(ctx context.Context, c *config.Config) (ledger.Ledger, func() error, error) {
	switch c.Driver {
	case config.DriverPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Postgres, c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.SQLite, c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverLevelDB:
		s, err := levelstore.Open(c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

type keyBatcher interface {
	RegisterKeys(ctx context.Context, keys map[string]string) error
}

func (app *App) registerKeys(ctx context.Context) error {
	if len(app.config.Keys) == 0 {
		return nil
	}

	if b, ok := app.store.(keyBatcher); ok {
		if err := b.RegisterKeys(ctx, app.config.Keys); err != nil {
			return fmt.Errorf("register keys: %w", err)
		}
	} else {
		for address, key := range app.config.Keys {
			if err := app.store.RegisterKey(ctx, address, key); err != nil {
				return fmt.Errorf("register key for %s: %w", address, err)
			}
		}
	}

	app.logger.Info(ctx, "public keys registered", "count", len(app.config.Keys))
	return nil
}

// Run serves the ledger until ctx ends or the process is signalled.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	defer func() {
		if err := app.close(); err != nil {
			app.logger.Error(ctx, "store close failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting ledger node...", "driver", app.config.Driver)
	return rpc.NewServer(app.config.ListenAddr, app.store, app.logger).Run(ctx)
}
