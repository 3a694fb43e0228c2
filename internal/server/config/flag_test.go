package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-l", "ledger:50061", "-m", "master", "-k", "AGE-SECRET-KEY-1X", "-P", "age1x",
				"-s", "secret", "-t", "5", "-x", "60", "-w", "2",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			expected: &Config{
				EndpointAddrGRPC:           "127.0.0.1:9090",
				LedgerEndpoint:             "ledger:50061",
				MasterAddress:              "master",
				MasterSecretKey:            "AGE-SECRET-KEY-1X",
				MasterPublicKey:            "age1x",
				SecretKey:                  "secret",
				AdminTokenValidityDuration: 5 * time.Minute,
				SessionTTL:                 60 * time.Minute,
				DecodeWorkers:              2,
				S3RootUser:                 "user",
				S3RootPassword:             "password",
				S3Bucket:                   "bucket",
				S3Region:                   "us-west-1",
				S3BaseEndpoint:             "http://endpoint",
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"cmd", "-c", "cfg.json", "-m", "master", "-z", "zzz"},
			expected: &Config{
				MasterAddress: "master",
			},
		},
		{
			name:        "bad integer panics",
			args:        []string{"cmd", "-w", "many"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Equal(t, tt.expected, config)
		})
	}
}
