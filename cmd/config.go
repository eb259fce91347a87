package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/loader"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/quality"
	"github.com/steelworks/forge/pkg/server"
	"github.com/steelworks/forge/pkg/warehouse"
)

var (
	// ErrWarehouseURLRequired is returned when the warehouse URL is not provided
	ErrWarehouseURLRequired = errors.New("warehouse URL is required")
)

// Config is the full application configuration
type Config struct {
	// Logging level
	Logging string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`

	// Warehouse connection configuration
	Warehouse warehouse.Config `yaml:"warehouse"`

	// Models discovery configuration
	Models models.ServiceConfig `yaml:"models"`

	// Admin run-log configuration
	Admin admin.Config `yaml:"admin"`

	// Quality check configuration
	Quality quality.Config `yaml:"quality"`

	// Loader configuration
	Loader loader.Config `yaml:"loader"`

	// Server configuration for serve mode
	Server server.Config `yaml:"server"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Warehouse.URL == "" {
		return ErrWarehouseURLRequired
	}

	// Set defaults for the warehouse if not specified
	if c.Warehouse.QueryTimeout == 0 {
		c.Warehouse.QueryTimeout = 30 * time.Second
	}

	if c.Warehouse.InsertTimeout == 0 {
		c.Warehouse.InsertTimeout = 60 * time.Second
	}

	if c.Warehouse.KeepAlive == 0 {
		c.Warehouse.KeepAlive = 30 * time.Second
	}

	c.Quality.SetDefaults()
	c.Loader.SetDefaults()

	return c.Server.Validate()
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	// Try to read the file, but allow it to not exist
	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults or environment variables
			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadRuntimeConfig loads and validates the config for commands that talk to
// the warehouse.
func loadRuntimeConfig() (*Config, error) {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newWarehouseClient builds and connects a warehouse client
func newWarehouseClient(cfg *Config) (warehouse.ClientInterface, error) {
	client, err := warehouse.NewClient(logger, &cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse client: %w", err)
	}

	if err := client.Start(); err != nil {
		return nil, err
	}

	return client, nil
}

// loadModelsService discovers and parses the model tree
func loadModelsService(cfg *Config) (*models.Service, error) {
	service := models.NewService(logger, &cfg.Models)
	if err := service.Load(); err != nil {
		return nil, err
	}

	return service, nil
}
