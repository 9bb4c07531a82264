// Package config loads runtime configuration for the chat client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//  4. Secrets from the environment or a .env file in the working directory.
//
// # JSON schema
//
// Intervals accept strings like "30s" or integer nanoseconds:
//
//	{
//	  "store": {"backend": "redis", "dsn": "redis://127.0.0.1:6379/0"},
//	  "blob": {"backend": "s3", "s3": {"bucket": "chat", "region": "us-east-1"}},
//	  "meili_url": "http://127.0.0.1:7700",
//	  "presence_interval": "30s",
//	  "activity_window": "3m",
//	  "log_level": "debug",
//	  "metrics_addr": ":9100"
//	}
//
// # Environment
//
// CHATSYNC_TOKEN_SECRET, CHATSYNC_ACCESS_TOKEN, CLOUDINARY_URL, MEILI_API_KEY
// and S3_SECRET_KEY.
package config
