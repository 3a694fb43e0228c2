package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_OnlyGivenFlagsChange(t *testing.T) {
	setArgs(t, "-t", "2")

	cfg := defaults()
	parseFlags(&cfg)

	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestParseFlags_SecondsAndForms(t *testing.T) {
	setArgs(t, "-a=node:50051", "-i=0", "-t", "90", "-v", "-c", "ignored.json")

	cfg := defaults()
	require.NotPanics(t, func() { parseFlags(&cfg) })

	assert.Equal(t, "node:50051", cfg.ServerEndpointAddr)
	assert.Zero(t, cfg.OnlineCheckInterval)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
}

func TestParseFlags_RejectsNonIntegerSeconds(t *testing.T) {
	for _, args := range [][]string{
		{"-i", "abc"},
		{"-t", "1.5"},
		{"-t", "10s"},
		{"-i="},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			setArgs(t, args...)
			cfg := defaults()
			assert.Panics(t, func() { parseFlags(&cfg) })
		})
	}
}
