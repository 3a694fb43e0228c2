package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_RejectsMissingMaster(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	_, err := NewApp(c)
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestNewApp_WiresComponents(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.MasterAddress = "master"
	c.MasterSecretKey = "AGE-SECRET-KEY-1TEST"
	c.MasterPublicKey = "age1test"

	app, err := NewApp(c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.ledger.Close() })

	assert.NotNil(t, app.accounts)
	assert.NotNil(t, app.backups)
	assert.Equal(t, "master", app.master.Address)
	assert.Equal(t, "age1test", app.master.PublicKey)
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LedgerEndpoint = "127.0.0.1:1"
	c.MasterAddress = "master"
	c.MasterSecretKey = "AGE-SECRET-KEY-1TEST"

	app, err := NewApp(c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}
