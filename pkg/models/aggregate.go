package models

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrSourceSQLRequired is returned when an aggregate model has no source query
	ErrSourceSQLRequired = errors.New("sql source query is required for aggregate models")
)

// AggregateModel pairs a warehouse source query with a built-in Go
// aggregator. The source query produces the pre-aggregated input rows; the
// aggregator computes the ordered window or rollup pass and the result
// replaces the target table wholesale.
type AggregateModel struct {
	Config `yaml:",inline"`
	SQL    string `yaml:"sql"`
}

// NewAggregateModel creates a new aggregate model from file content
func NewAggregateModel(content []byte) (*AggregateModel, error) {
	var model *AggregateModel
	if err := yaml.Unmarshal(content, &model); err != nil {
		return nil, fmt.Errorf("failed to parse aggregate model: %w", err)
	}

	if model == nil || model.SQL == "" {
		return nil, ErrSourceSQLRequired
	}

	model.SetDefaults()

	return model, nil
}

// Validate checks if the aggregate model is valid
func (m *AggregateModel) Validate() error {
	if m.SQL == "" {
		return ErrSourceSQLRequired
	}

	if m.Aggregator == "" {
		return ErrAggregatorRequired
	}

	if m.Schema == "" {
		return ErrSchemaRequired
	}

	if len(m.Dependencies) == 0 {
		return ErrDependenciesRequired
	}

	return m.Config.Validate()
}

// GetKind returns the model kind
func (m *AggregateModel) GetKind() Kind {
	return KindAggregate
}

// GetConfig returns the model configuration
func (m *AggregateModel) GetConfig() *Config {
	return &m.Config
}

// GetValue returns the source SQL query
func (m *AggregateModel) GetValue() string {
	return m.SQL
}
