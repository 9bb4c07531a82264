package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chatsync/internal/flagx"
	"github.com/dmitrijs2005/chatsync/internal/timex"
)

// JsonConfig is the on-disk shape of the relay configuration.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	Store            struct {
		Backend         string `json:"backend"`
		DSN             string `json:"dsn"`
		Database        string `json:"database"`
		CredentialsFile string `json:"credentials_file"`
	} `json:"store"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string         `json:"log_level"`
	MetricsAddr                 string         `json:"metrics_addr"`
}

// parseJson overlays config with the file named by -c or -config. Only the
// fields present in the file change. Panics on read or unmarshal errors.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
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
	setString(&config.Store.Backend, c.Store.Backend)
	setString(&config.Store.DSN, c.Store.DSN)
	setString(&config.Store.Database, c.Store.Database)
	setString(&config.Store.CredentialsFile, c.Store.CredentialsFile)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MetricsAddr, c.MetricsAddr)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
