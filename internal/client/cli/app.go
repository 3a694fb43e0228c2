package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/client/client"
	"github.com/dmitrijs2005/chainkeeper/internal/client/config"
	"github.com/dmitrijs2005/chainkeeper/internal/wire"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// AccountsAPI is the server surface the console drives. *client.GRPCClient
// implements it.
type AccountsAPI interface {
	Available(ctx context.Context, userKey string) (bool, error)
	Register(ctx context.Context, userKey, passKey string, metaData, sensitiveData map[string]any) (bool, error)
	Lookup(ctx context.Context, userKey string) (*wire.Account, error)
	Retrieve(ctx context.Context, userKey, passKey string) (*wire.Account, error)
	Verify(ctx context.Context, userKey, passKey string) (bool, error)
	ChangePassword(ctx context.Context, userKey, passKey, newPassKey string) (bool, error)
	ChangeUsername(ctx context.Context, userKey, passKey, newUserKey string) (bool, error)
	ChangeMetaData(ctx context.Context, userKey, passKey string, metaData map[string]any) (bool, error)
	ChangeSensitiveData(ctx context.Context, userKey, passKey string, sensitiveData map[string]any) (bool, error)
	Remove(ctx context.Context, userKey, passKey string, force bool) (bool, error)
	AdminLogin(ctx context.Context, address, secret string) error
	IsAdmin() bool
	DeleteAll(ctx context.Context) (bool, error)
	ExportBackup(ctx context.Context) (*wire.ExportBackupResponse, error)
	RestoreBackup(ctx context.Context, key string) (*wire.RestoreBackupResponse, error)
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	config *config.Config
	api    AccountsAPI
	reader *bufio.Reader
	out    io.Writer

	mu   sync.RWMutex
	Mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewAccountsClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return newApp(c, api, bufio.NewReader(os.Stdin), os.Stdout), nil
}

func newApp(c *config.Config, api AccountsAPI, reader *bufio.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: reader, out: out}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

func (a *App) isAdmin() bool {
	return a.api.IsAdmin()
}

func (a *App) getStatus() string {
	s := ""
	if a.isAdmin() {
		s = "admin "
	}
	s += string(a.mode())
	return s
}

// Run starts the status watcher and the command loop on stdin. It returns
// when the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to ChainKeeper CLI (type 'help' for commands)")

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval and updates Mode
// until ctx is cancelled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
