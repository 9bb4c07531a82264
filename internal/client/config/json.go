package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/flagx"
	"github.com/dmitrijs2005/chatsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	Store struct {
		Backend         string `json:"backend"`
		DSN             string `json:"dsn"`
		Database        string `json:"database"`
		CredentialsFile string `json:"credentials_file"`
	} `json:"store"`
	Blob             *blob.Config   `json:"blob"`
	MeiliURL         string         `json:"meili_url"`
	PresenceInterval timex.Duration `json:"presence_interval"`
	ActivityWindow   timex.Duration `json:"activity_window"`
	LogLevel         string         `json:"log_level"`
	MetricsAddr      string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the file named by -c or -config. Only fields
// present in the file change. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Store.Backend, jc.Store.Backend)
	setString(&cfg.Store.DSN, jc.Store.DSN)
	setString(&cfg.Store.Database, jc.Store.Database)
	setString(&cfg.Store.CredentialsFile, jc.Store.CredentialsFile)
	if jc.Blob != nil {
		secret, cloudinaryURL := cfg.Blob.S3.SecretKey, cfg.Blob.CloudinaryURL
		cfg.Blob = *jc.Blob
		cfg.Blob.S3.SecretKey, cfg.Blob.CloudinaryURL = secret, cloudinaryURL
	}
	setString(&cfg.MeiliURL, jc.MeiliURL)
	if jc.PresenceInterval.Duration > 0 {
		cfg.PresenceInterval = jc.PresenceInterval.Duration
	}
	if jc.ActivityWindow.Duration > 0 {
		cfg.ActivityWindow = jc.ActivityWindow.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
