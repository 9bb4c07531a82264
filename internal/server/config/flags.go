package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/flagx"
)

// parseFlags populates selected relay Config fields from command-line flags.
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-s string   store backend (memory, redis, postgres, sqlite, firestore, mongo)
//	-d string   store DSN
//	-t int      issued access token validity, minutes
//	-l string   log level
//	-metrics string   metrics listen address
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-d", "-t", "-l", "-metrics"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.Store.Backend, "s", config.Store.Backend, "document store backend")
	fs.StringVar(&config.Store.DSN, "d", config.Store.DSN, "document store DSN")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.MetricsAddr, "metrics", config.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
