package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/pairsync/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address for websocket and metrics (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   instance ID
//	-b string   event backend: embedded, nats or channel
//	-n string   NATS URL (backend "nats")
//	-l string   log format: json, text or zerolog
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the -c/-config flag.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-d", "-s", "-i", "-b", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.GRPCAddress, "a", config.GRPCAddress, "address and port to run gRPC server")
	fs.StringVar(&config.HTTPAddress, "w", config.HTTPAddress, "address and port to run HTTP server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.InstanceID, "i", config.InstanceID, "instance id")
	fs.StringVar(&config.EventBackend, "b", config.EventBackend, "event backend (embedded, nats, channel)")
	fs.StringVar(&config.NATSURL, "n", config.NATSURL, "NATS URL")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json, text, zerolog)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
