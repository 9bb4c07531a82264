package config

import "github.com/dmitrijs2005/chatsync/internal/envx"

// EnvTokenSecret holds the relay's HMAC secret, shared with the clients.
const EnvTokenSecret = "CHATSYNC_TOKEN_SECRET"

var envFiles = []string{".env"}

// parseEnv reads the secret from the environment or .env. Panics on a
// malformed .env file.
func parseEnv(config *Config) {
	env, err := envx.Load(envFiles...)
	if err != nil {
		panic(err)
	}
	env.Set(&config.SecretKey, EnvTokenSecret)
}
