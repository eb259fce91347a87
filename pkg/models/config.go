// Package models handles model discovery, parsing, and dependency management
package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseRequired is returned when database is not specified
	ErrDatabaseRequired = errors.New("database is required")
	// ErrTableRequired is returned when table is not specified
	ErrTableRequired = errors.New("table is required")
	// ErrStageRequired is returned when stage is not specified
	ErrStageRequired = errors.New("stage is required")
	// ErrInvalidStage is returned when stage is not a known pipeline stage
	ErrInvalidStage = errors.New("stage must be 'staging', 'intermediate' or 'marts'")
	// ErrInvalidMaterialization is returned when materialization is not valid
	ErrInvalidMaterialization = errors.New("materialization must be 'view' or 'table'")
	// ErrAggregatorRequired is returned when an aggregate model has no aggregator
	ErrAggregatorRequired = errors.New("aggregator is required for aggregate models")
	// ErrSchemaRequired is returned when an aggregate model has no target schema
	ErrSchemaRequired = errors.New("schema DDL is required for aggregate models")
	// ErrDependenciesRequired is returned when an aggregate model has no dependencies
	ErrDependenciesRequired = errors.New("dependencies are required for aggregate models")
)

// Stage identifies the pipeline stage a model belongs to
type Stage string

const (
	// StageStaging is the cleaned view layer over raw ingested data
	StageStaging Stage = "staging"
	// StageIntermediate is the per-day aggregated metrics layer
	StageIntermediate Stage = "intermediate"
	// StageMarts is the business-facing rollup layer
	StageMarts Stage = "marts"
)

// Stages lists the pipeline stages in execution order
//
//nolint:gochecknoglobals // Fixed stage ordering shared across packages
var Stages = []Stage{StageStaging, StageIntermediate, StageMarts}

// Materialization identifies how a model is persisted in the warehouse
type Materialization string

const (
	// MaterializationView recomputes the model on every read
	MaterializationView Materialization = "view"
	// MaterializationTable persists the model as a full-refresh table
	MaterializationTable Materialization = "table"
)

// Config defines the configuration shared by all model kinds. For SQL models
// it is parsed from the YAML frontmatter; for aggregate models it is inlined
// in the model YAML file.
type Config struct {
	Stage           Stage           `yaml:"stage"`
	Database        string          `yaml:"database"`
	Table           string          `yaml:"table"`
	Materialization Materialization `yaml:"materialization,omitempty"`
	Aggregator      string          `yaml:"aggregator,omitempty"`
	Schema          string          `yaml:"schema,omitempty"`
	Dependencies    []string        `yaml:"dependencies,omitempty"`
	Description     string          `yaml:"description,omitempty"`
	Columns         []Column        `yaml:"columns,omitempty"`
	Tags            []string        `yaml:"tags,omitempty"`
}

// Column documents one output column and its declarative quality tests
type Column struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestSpec `yaml:"tests,omitempty"`
}

// GetID returns the unique identifier for the model
func (c *Config) GetID() string {
	return fmt.Sprintf("%s.%s", c.Database, c.Table)
}

// Validate checks if the shared configuration is valid
func (c *Config) Validate() error {
	if c.Database == "" {
		return ErrDatabaseRequired
	}

	if c.Table == "" {
		return ErrTableRequired
	}

	if c.Stage == "" {
		return ErrStageRequired
	}

	if c.Stage != StageStaging && c.Stage != StageIntermediate && c.Stage != StageMarts {
		return ErrInvalidStage
	}

	if c.Materialization != "" && c.Materialization != MaterializationView && c.Materialization != MaterializationTable {
		return ErrInvalidMaterialization
	}

	return nil
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.Materialization == "" {
		if c.Stage == StageStaging {
			c.Materialization = MaterializationView
		} else {
			c.Materialization = MaterializationTable
		}
	}
}
