package config

import (
	"time"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore/backend"
)

// Config holds runtime settings for the chat client.
//
// Fields:
//   - Store: document store backend and its address.
//   - Blob: where avatars and attachments are uploaded.
//   - MeiliURL / MeiliKey: optional Meilisearch index for post search.
//   - TokenSecret: HMAC secret used to verify sign-in tokens.
//   - PresenceInterval: minimum gap between two activity writes.
//   - ActivityWindow: how long after the last activity a user counts as active.
type Config struct {
	Store            backend.Config
	Blob             blob.Config
	MeiliURL         string
	MeiliKey         string
	TokenSecret      string
	AccessToken      string
	PresenceInterval time.Duration
	ActivityWindow   time.Duration
	LogLevel         string
	MetricsAddr      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Store = backend.Config{Backend: backend.Memory}
	c.Blob = blob.Config{Backend: "local", LocalDir: "./uploads", PublicBase: "file://uploads"}
	c.PresenceInterval = common.ActivityReportInterval
	c.ActivityWindow = common.ActiveWindow
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), command-line flags (if present) and finally secrets from
// the environment and .env.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
