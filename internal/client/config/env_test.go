package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	origFiles := envFiles
	t.Cleanup(func() { envFiles = origFiles })

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"CHATSYNC_TOKEN_SECRET=file-secret\nMEILI_API_KEY=file-key\nS3_SECRET_KEY=s3\n"), 0o600))
	envFiles = []string{dotenv}

	t.Setenv(EnvMeiliKey, "env-key")
	t.Setenv(EnvCloudinaryURL, "cloudinary://k:s@demo")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "file-secret", cfg.TokenSecret)
	assert.Equal(t, "env-key", cfg.MeiliKey)
	assert.Equal(t, "cloudinary://k:s@demo", cfg.Blob.CloudinaryURL)
	assert.Equal(t, "s3", cfg.Blob.S3.SecretKey)
}

func TestParseEnv_MalformedPanics(t *testing.T) {
	origFiles := envFiles
	t.Cleanup(func() { envFiles = origFiles })

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("A='open\n"), 0o600))
	envFiles = []string{dotenv}

	require.Panics(t, func() { parseEnv(&Config{}) })
}
