// Package config handles configuration for the accounts server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
)

// Config holds runtime settings for the accounts server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - LedgerEndpoint: address of the ledger node serving the raw ledger.
//   - MasterAddress / MasterSecretKey: the master identity every account
//     record is written under and decrypted with (age X25519 secret).
//   - MasterPublicKey: optional; resolved from the ledger when empty.
//   - SecretKey: HMAC secret for admin JWTs (HS256). Do not use test defaults in prod.
//   - AdminTokenValidityDuration: admin token lifetime.
//   - SessionTTL: idle lifetime of cached identity sessions.
//   - DecodeWorkers: parallelism of ledger record decoding.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage used for backups.
type Config struct {
	EndpointAddrGRPC           string
	LedgerEndpoint             string
	MasterAddress              string
	MasterSecretKey            string
	MasterPublicKey            string
	SecretKey                  string
	AdminTokenValidityDuration time.Duration
	SessionTTL                 time.Duration
	DecodeWorkers              int
	S3RootUser                 string
	S3RootPassword             string
	S3Bucket                   string
	S3Region                   string
	S3BaseEndpoint             string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the master identity has no default and must be configured.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.LedgerEndpoint = "127.0.0.1:50061"
	c.SecretKey = "secretKey"
	c.AdminTokenValidityDuration = 15 * time.Minute
	c.SessionTTL = 30 * time.Minute
	c.DecodeWorkers = 8
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "vault"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// Validate reports a missing master identity as common.ErrConfiguration.
func (c *Config) Validate() error {
	if c.MasterAddress == "" {
		return fmt.Errorf("%w: master address is not set", common.ErrConfiguration)
	}
	if c.MasterSecretKey == "" {
		return fmt.Errorf("%w: master secret key is not set", common.ErrConfiguration)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
