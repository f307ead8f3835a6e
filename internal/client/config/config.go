// Package config holds the runtime settings of the interactive account
// client: defaults, an optional JSON overlay and command-line flags.
package config

import "time"

// ConfigEnvVar names the environment variable consulted for the JSON config
// path when no -c/-config flag is given.
const ConfigEnvVar = "GOPHACCOUNT_CLIENT_CONFIG"

// Config holds runtime settings for the account CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: deadline applied to every remote call.
//   - SessionDBPath: sqlite file the current session is kept in.
//   - AvatarMaxBytes: local size limit checked before an avatar is sent.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	SessionDBPath       string
	AvatarMaxBytes      int64
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.SessionDBPath = "data/session.db"
	c.AvatarMaxBytes = 2 << 20
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
