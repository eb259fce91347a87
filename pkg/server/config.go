// Package server runs the long-lived serve mode: HTTP API, scheduled
// pipeline runs and the metrics endpoint.
package server

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds serve-mode configuration
type Config struct {
	// APIAddr is the address the HTTP API listens on
	APIAddr string `yaml:"apiAddr" default:":8080"`
	// MetricsAddr is the address the metrics endpoint listens on
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// Schedule is an optional cron expression for recurring pipeline runs.
	// Empty disables scheduled runs.
	Schedule string `yaml:"schedule"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
		}
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.APIAddr == "" {
		c.APIAddr = ":8080"
	}

	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
