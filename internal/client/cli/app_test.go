package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	app, err := NewApp(&config.Config{ServerEndpointAddr: "127.0.0.1:0", RequestTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, app.api)
	require.NoError(t, app.api.Close())
}

type flakyPinger struct {
	fakeAPI
	mu    sync.Mutex
	fails bool
	pings int
}

func (f *flakyPinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.fails {
		return assert.AnError
	}
	return nil
}

func (f *flakyPinger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func TestStartOnlineStatusWatcher_SwitchesMode(t *testing.T) {
	api := &flakyPinger{fails: true}
	app := newApp(&config.Config{}, api, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return app.mode() == ModeOffline }, time.Second, 5*time.Millisecond)

	api.mu.Lock()
	api.fails = false
	api.mu.Unlock()

	require.Eventually(t, func() bool { return app.mode() == ModeOnline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Greater(t, api.count(), 1)
}

func TestStartOnlineStatusWatcher_NonPositiveIntervalReturns(t *testing.T) {
	app := newApp(&config.Config{}, &fakeAPI{}, nil, nil)
	app.StartOnlineStatusWatcher(context.Background(), 0)
}
