// Package config handles configuration for the ledger node.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/flagx"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverLevelDB  = "leveldb"
	DriverMemory   = "memory"
)

// Config holds runtime settings for the ledger node.
//
// Fields:
//   - ListenAddr: bind address of the ledger gRPC service.
//   - Driver: storage backend, one of postgres, sqlite, leveldb, memory.
//   - DSN: connection string (postgres), file path (sqlite) or directory (leveldb).
//   - Keys: address to age public key pairs registered at startup.
type Config struct {
	ListenAddr string
	Driver     string
	DSN        string
	Keys       map[string]string
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = ":50061"
	c.Driver = DriverSQLite
	c.DSN = "ledger.db"
	c.Keys = map[string]string{}
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite, DriverLevelDB:
		if c.DSN == "" {
			return fmt.Errorf("%w: driver %s needs a dsn", common.ErrConfiguration, c.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown driver %q", common.ErrConfiguration, c.Driver)
	}
	return nil
}

func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

type JsonConfig struct {
	ListenAddr string            `json:"listen_addr"`
	Driver     string            `json:"driver"`
	DSN        string            `json:"dsn"`
	Keys       map[string]string `json:"keys"`
}

func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ListenAddr != "" {
		config.ListenAddr = c.ListenAddr
	}
	if c.Driver != "" {
		config.Driver = c.Driver
	}
	if c.DSN != "" {
		config.DSN = c.DSN
	}
	if config.Keys == nil {
		config.Keys = map[string]string{}
	}
	for k, v := range c.Keys {
		config.Keys[k] = v
	}
}

// parseFlags reads -a (listen address), -d (driver), -n (dsn) and the
// repeatable -k address=publickey.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-n", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	if config.Keys == nil {
		config.Keys = map[string]string{}
	}

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to listen on")
	fs.StringVar(&config.Driver, "d", config.Driver, "storage driver: postgres, sqlite, leveldb, memory")
	fs.StringVar(&config.DSN, "n", config.DSN, "storage dsn or path")
	fs.Var(flagx.Pairs(config.Keys), "k", "address=publickey to register (repeatable)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
