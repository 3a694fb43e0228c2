package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chainkeeper/internal/flagx"
	"github.com/dmitrijs2005/chainkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// use timex.Duration so they may be written as "15m" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC           string         `json:"endpoint_addr_grpc"`
	LedgerEndpoint             string         `json:"ledger_endpoint"`
	MasterAddress              string         `json:"master_address"`
	MasterSecretKey            string         `json:"master_secret_key"`
	MasterPublicKey            string         `json:"master_public_key"`
	SecretKey                  string         `json:"secret_key"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	SessionTTL                 timex.Duration `json:"session_ttl"`
	DecodeWorkers              int            `json:"decode_workers"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Keys missing from the file leave the current value in place. An unreadable
// or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.LedgerEndpoint, c.LedgerEndpoint)
	setString(&config.MasterAddress, c.MasterAddress)
	setString(&config.MasterSecretKey, c.MasterSecretKey)
	setString(&config.MasterPublicKey, c.MasterPublicKey)
	setString(&config.SecretKey, c.SecretKey)
	if c.AdminTokenValidityDuration.Duration != 0 {
		config.AdminTokenValidityDuration = c.AdminTokenValidityDuration.Duration
	}
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.DecodeWorkers != 0 {
		config.DecodeWorkers = c.DecodeWorkers
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
