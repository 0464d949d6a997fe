package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/redditscheduler/internal/flagx"
)

// parseFlags populates selected fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-k string   encryption key (64 hex chars)
//	-s string   cron spec for the in-process scheduler ("" disables)
//	-t string   bearer token required by /run-scheduler
//	-l string   log level
//
// Only these flags are looked at, so other flag sets can share os.Args.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "refresh token encryption key")
	fs.StringVar(&config.SchedulerCron, "s", config.SchedulerCron, "scheduler cron spec")
	fs.StringVar(&config.SchedulerAuthToken, "t", config.SchedulerAuthToken, "scheduler auth token")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
