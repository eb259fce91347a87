// Package loader ingests raw CSV exports into the warehouse source relation
package loader

import (
	"errors"
)

// Define static errors
var (
	ErrEmptySource        = errors.New("source file has no header row")
	ErrTooManyBadRecords  = errors.New("too many malformed records")
	ErrBatchSizeInvalid   = errors.New("batch size must be positive")
	ErrNoBusinessColumns  = errors.New("source file declares no columns")
	ErrReservedColumnName = errors.New("source column collides with a provenance column")
)

// Config contains loader settings
type Config struct {
	// Database holding the raw relation
	Database string `yaml:"database" default:"raw"`
	// Table receiving the ingested rows
	Table string `yaml:"table" default:"transactions"`
	// BatchSize is the number of rows per insert
	BatchSize int `yaml:"batchSize" default:"10000"`
	// MaxBadRecords is how many malformed CSV rows are tolerated before
	// the load aborts
	MaxBadRecords int `yaml:"maxBadRecords" default:"1000"`
	// ProgressInterval is how many rows between progress log lines
	ProgressInterval int `yaml:"progressInterval" default:"100000"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "raw"
	}

	if c.Table == "" {
		c.Table = "transactions"
	}

	if c.BatchSize == 0 {
		c.BatchSize = 10000
	}

	if c.MaxBadRecords == 0 {
		c.MaxBadRecords = 1000
	}

	if c.ProgressInterval == 0 {
		c.ProgressInterval = 100000
	}
}
