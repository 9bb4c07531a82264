// Package config handles configuration for the relay, including defaults,
// JSON overlay, command-line flags and the secret read from the environment.
package config

import (
	"time"

	"github.com/dmitrijs2005/chatsync/internal/docstore/backend"
)

// Config holds runtime settings for the relay.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - Store: the document store served to clients.
//   - SecretKey: HMAC secret for verifying and issuing access tokens. Empty
//     disables authentication.
//   - AccessTokenValidityDuration: lifetime of tokens issued with -issue.
type Config struct {
	EndpointAddrGRPC            string
	Store                       backend.Config
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	LogLevel                    string
	MetricsAddr                 string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.Store = backend.Config{Backend: backend.Memory}
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, command-line flags and the environment.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
