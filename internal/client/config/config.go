// Package config handles configuration for the backup CLI.
package config

import "time"

// Config holds runtime settings for the backupd CLI.
//
// Fields:
//   - ServerAddr: base URL of the backend HTTP API.
//   - RequestTimeout: per-request timeout for API calls.
//   - KeyFile: where the account encryption key is kept between sessions.
//   - LicenseFile: where downloaded license documents are written.
type Config struct {
	ServerAddr     string
	RequestTimeout time.Duration
	KeyFile        string
	LicenseFile    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.KeyFile = "backup.key"
	c.LicenseFile = "license.lic"
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
