// Package config holds settings for the pairsyncctl operator CLI.
package config

import "time"

// Config holds runtime settings for pairsyncctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the pairsync gRPC endpoint.
//   - SecretKey: server JWT secret used to mint the caller's access token.
//   - UID: user the CLI acts as.
//   - RequestTimeout: deadline applied to every call.
type Config struct {
	ServerEndpointAddr string
	SecretKey          string
	UID                string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SecretKey = "secretKey"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies defaults and then command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)
	return cfg
}
