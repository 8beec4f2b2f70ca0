package config

import "time"

// Config holds runtime settings for the Kopilka CLI.
//
// Fields:
//   - ServerEndpointURL: base URL of the data gateway, e.g. "https://api.example.com".
//   - APIKey: project API key sent with every gateway request.
//   - DatabaseFile: path to the local SQLite database.
//   - OnlineCheckInterval: how often the client probes gateway reachability.
//
// Units: OnlineCheckInterval is a time.Duration (e.g., 3*time.Second).
type Config struct {
	ServerEndpointURL   string
	APIKey              string
	DatabaseFile        string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointURL = "http://127.0.0.1:8080"
	c.APIKey = ""
	c.DatabaseFile = "kopilka.db"
	c.OnlineCheckInterval = 3 * time.Second
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
