package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/docstore/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, backend.Memory, c.Store.Backend)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.SecretKey)
	assert.Empty(t, c.MetricsAddr)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs, origFiles := os.Args, envFiles
	t.Cleanup(func() { os.Args, envFiles = origArgs, origFiles })
	os.Args = []string{"relay"}
	envFiles = nil
	t.Setenv(EnvTokenSecret, "from-env")

	c := LoadConfig()
	require.NotNil(t, c)

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, backend.Memory, c.Store.Backend)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, "from-env", c.SecretKey)
}
