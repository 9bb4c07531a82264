package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-s string   store backend (memory, redis, postgres, sqlite, firestore, mongo, grpc)
//	-d string   store DSN
//	-b string   blob backend (local, s3, cloudinary)
//	-m string   Meilisearch URL
//	-i int      presence report interval (in seconds)
//	-w int      activity window (in seconds)
//	-l string   log level
//	-metrics string   metrics listen address
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-b", "-m", "-i", "-w", "-l", "-metrics"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Store.Backend, "s", cfg.Store.Backend, "document store backend")
	fs.StringVar(&cfg.Store.DSN, "d", cfg.Store.DSN, "document store DSN")
	fs.StringVar(&cfg.Blob.Backend, "b", cfg.Blob.Backend, "blob store backend")
	fs.StringVar(&cfg.MeiliURL, "m", cfg.MeiliURL, "Meilisearch URL")
	presenceInterval := fs.Int("i", int(cfg.PresenceInterval.Seconds()), "presence report interval (in seconds)")
	activityWindow := fs.Int("w", int(cfg.ActivityWindow.Seconds()), "activity window (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PresenceInterval = time.Duration(*presenceInterval) * time.Second
	cfg.ActivityWindow = time.Duration(*activityWindow) * time.Second
}
