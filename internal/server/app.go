// Package server wires the accounts server together: ledger connection,
// session registry, lifecycle manager, backups and the gRPC endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/chainkeeper/internal/accounts"
	"github.com/dmitrijs2005/chainkeeper/internal/backup"
	"github.com/dmitrijs2005/chainkeeper/internal/capability"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/rpc"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/server/config"
	"github.com/dmitrijs2005/chainkeeper/internal/session"

	gs "github.com/dmitrijs2005/chainkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	ledger   *rpc.Client
	master   capability.Master
	accounts *accounts.Manager
	backups  *backup.Service
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := c.Validate(); err != nil {
		return nil, err
	}

	l, err := rpc.Dial(c.LedgerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("ledger dial error: %w", err)
	}

	master := capability.Master{
		Address:   c.MasterAddress,
		SecretKey: c.MasterSecretKey,
		PublicKey: c.MasterPublicKey,
	}

	reg := session.New(l, master, c.SessionTTL, logger)
	am := accounts.NewManager(reg, c.DecodeWorkers, logger)
	bs := backup.NewService(am, c, logger)

	return &App{config: c, logger: logger, ledger: l, master: master, accounts: am, backups: bs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// registerMasterKey publishes a configured master public key so other
// readers of the ledger can resolve it.
func (app *App) registerMasterKey(ctx context.Context) {
	if app.master.PublicKey == "" {
		return
	}
	if err := app.ledger.RegisterKey(ctx, app.master.Address, app.master.PublicKey); err != nil {
		app.logger.Warn(ctx, "master public key not registered", "address", app.master.Address, "error", err)
		return
	}
	app.logger.Info(ctx, "master public key registered", "address", app.master.Address)
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.backups,
		app.master, app.config.SecretKey, app.config.AdminTokenValidityDuration)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.registerMasterKey(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.ledger.Close(); err != nil {
		app.logger.Error(ctx, "ledger connection close failed", "error", err)
	}
}
