package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the server (default from Config)
//	-s string   JWT secret shared with the server
//	-u string   UID to act as
//	-t int      request timeout in seconds
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret")
	fs.StringVar(&cfg.UID, "u", cfg.UID, "user UID")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
