package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr_grpc": ":6000",
		"store": {"backend": "postgres", "dsn": "postgres://db/chat"},
		"access_token_validity_duration": "2h",
		"metrics_addr": ":9100"
	}`), 0o600))
	os.Args = []string{"relay", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":6000", cfg.EndpointAddrGRPC)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://db/chat", cfg.Store.DSN)
	assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	// absent fields keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseJson_NoFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"relay"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
}

func TestParseJson_Panics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))

	for _, args := range [][]string{
		{"relay", "-config", bad},
		{"relay", "-c", filepath.Join(t.TempDir(), "missing.json")},
	} {
		os.Args = args
		require.Panics(t, func() { parseJson(&Config{}) })
	}
}
