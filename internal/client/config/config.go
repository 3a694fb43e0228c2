// Package config handles configuration for the operator CLI: defaults, an
// optional JSON file (-c/-config) and command-line flags, in that order.
package config

import "time"

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the accounts gRPC endpoint.
//   - OnlineCheckInterval: how often the CLI checks server reachability.
//   - RequestTimeout: deadline applied to every call.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
