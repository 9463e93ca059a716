package config

import "time"

// Config holds runtime settings for the feedback CLI.
//
// Fields:
//   - ServerURL: base URL of the feedbackd HTTP API.
//   - SessionDB: path of the SQLite file that keeps the login session.
//   - RequestTimeout: per-request HTTP timeout; uploads share it.
type Config struct {
	ServerURL      string
	SessionDB      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:3005"
	c.SessionDB = "session.db"
	c.RequestTimeout = 2 * time.Minute
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
