package config

import "github.com/dmitrijs2005/chatsync/internal/envx"

// Secrets never come from the JSON file or flags.
const (
	EnvTokenSecret   = "CHATSYNC_TOKEN_SECRET"
	EnvAccessToken   = "CHATSYNC_ACCESS_TOKEN"
	EnvCloudinaryURL = "CLOUDINARY_URL"
	EnvMeiliKey      = "MEILI_API_KEY"
	EnvS3SecretKey   = "S3_SECRET_KEY"
)

var envFiles = []string{".env"}

// parseEnv overlays secrets from the process environment and .env files.
// Panics on a malformed .env file.
func parseEnv(cfg *Config) {
	env, err := envx.Load(envFiles...)
	if err != nil {
		panic(err)
	}

	env.Set(&cfg.TokenSecret, EnvTokenSecret)
	env.Set(&cfg.AccessToken, EnvAccessToken)
	env.Set(&cfg.Blob.CloudinaryURL, EnvCloudinaryURL)
	env.Set(&cfg.MeiliKey, EnvMeiliKey)
	env.Set(&cfg.Blob.S3.SecretKey, EnvS3SecretKey)
	cfg.Store.AccessToken = cfg.AccessToken
}
