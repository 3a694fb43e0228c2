package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setArgs replaces the process arguments for the duration of the test.
func setArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	t.Cleanup(func() { os.Args = saved })
	os.Args = append([]string{"cli"}, args...)
}

func configFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	assert.Equal(t, Config{
		ServerEndpointAddr:  "127.0.0.1:50051",
		OnlineCheckInterval: 3 * time.Second,
		RequestTimeout:      10 * time.Second,
	}, defaults())
}

func TestLoadConfig_Layers(t *testing.T) {
	file := configFile(t, `{"server_endpoint_addr":"file:7000","request_timeout":"20s"}`)

	cases := map[string]struct {
		args []string
		want Config
	}{
		"nothing given": {
			want: defaults(),
		},
		"file over defaults": {
			args: []string{"-c", file},
			want: Config{ServerEndpointAddr: "file:7000", OnlineCheckInterval: 3 * time.Second, RequestTimeout: 20 * time.Second},
		},
		"flags over file": {
			args: []string{"-config", file, "-t", "4", "-i", "1"},
			want: Config{ServerEndpointAddr: "file:7000", OnlineCheckInterval: time.Second, RequestTimeout: 4 * time.Second},
		},
		"address flag wins": {
			args: []string{"-a", "flag:1", "-c", file},
			want: Config{ServerEndpointAddr: "flag:1", OnlineCheckInterval: 3 * time.Second, RequestTimeout: 20 * time.Second},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setArgs(t, tc.args...)
			got := LoadConfig()
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}
