package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50061", c.ListenAddr)
	assert.Equal(t, DriverSQLite, c.Driver)
	assert.Equal(t, "ledger.db", c.DSN)
	assert.Empty(t, c.Keys)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory without dsn", Config{Driver: DriverMemory}, true},
		{"postgres with dsn", Config{Driver: DriverPostgres, DSN: "postgres://x"}, true},
		{"leveldb without dsn", Config{Driver: DriverLevelDB}, false},
		{"unknown driver", Config{Driver: "mongo", DSN: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, common.ErrConfiguration)
			}
		})
	}
}

func TestLoadConfig_JsonThenFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "node.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":7000",
		"driver": "leveldb",
		"dsn": "/var/ledger",
		"keys": {"master": "age1json"}
	}`), 0o600))

	os.Args = []string{"ledgerd", "-c", path, "-n", "/tmp/ledger", "-k", "other=age1flag", "-k", "master=age1override"}

	c := LoadConfig()
	assert.Equal(t, ":7000", c.ListenAddr)
	assert.Equal(t, DriverLevelDB, c.Driver)
	assert.Equal(t, "/tmp/ledger", c.DSN)
	assert.Equal(t, map[string]string{"master": "age1override", "other": "age1flag"}, c.Keys)
}

func TestParseFlags_BadPairPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"ledgerd", "-k", "novalue"}
	require.Panics(t, func() { parseFlags(&Config{}) })
}

func TestParseJson_InvalidPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	os.Args = []string{"ledgerd", "-config", path}
	require.Panics(t, func() { parseJson(&Config{}) })
}
