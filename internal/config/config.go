// Package config loads the usersd configuration from an optional YAML file,
// with environment variables taking precedence. The database location is read
// from USERSD_DB at startup, matching how the service is deployed.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr   string `yaml:"listenAddr"`
	DatabasePath string `yaml:"databasePath"`
	LogLevel     string `yaml:"logLevel"`
}

// Load reads filePath (when non-empty) over the built-in defaults, then
// applies environment overrides (USERSD_ADDR, USERSD_DB, USERSD_LOG_LEVEL).
func Load(filePath string) (Config, error) {
	c := Config{
		ListenAddr:   ":8080",
		DatabasePath: "users.db",
		LogLevel:     "info",
	}

	if filePath != "" {
		f, err := os.ReadFile(filePath)
		if err != nil {
			return c, fmt.Errorf("read config %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(f, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", filePath, err)
		}
	}

	if v := os.Getenv("USERSD_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("USERSD_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("USERSD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	return c, nil
}
