// Package config holds the process configuration and the match setting the
// session manager runs with.
package config

import (
	"os"
	"strings"
)

// Config is the process level configuration
type Config struct {
	Debug bool
	Port  string

	// APIKeys guard the host bridge endpoints.
	APIKeys []string
	// AllowedOrigin is the only websocket origin accepted. Empty accepts any.
	AllowedOrigin string

	SettingsPath string
	AutoLogin    bool
}

// ApplyEnv fills the fields that come from the environment (usually a .env file).
func (c *Config) ApplyEnv() {
	if envAPIKeys := os.Getenv("API_KEYS"); envAPIKeys != "" {
		keys := strings.Split(envAPIKeys, ",")
		c.APIKeys = c.APIKeys[:0]
		for _, key := range keys {
			if key = strings.TrimSpace(key); key != "" {
				c.APIKeys = append(c.APIKeys, key)
			}
		}
	}

	if origin := strings.TrimSpace(os.Getenv("FRONTEND_PATH")); origin != "" {
		c.AllowedOrigin = origin
	}

	if c.SettingsPath == "" {
		c.SettingsPath = strings.TrimSpace(os.Getenv("CSA_SETTINGS"))
	}
}
