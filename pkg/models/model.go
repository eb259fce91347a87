package models

import (
	"fmt"
	"path/filepath"
)

// Kind identifies how a model is executed
type Kind string

const (
	// KindSQL models are rendered and executed directly in the warehouse
	KindSQL Kind = "sql"
	// KindAggregate models run a built-in Go aggregator over a warehouse query
	KindAggregate Kind = "aggregate"
)

// Model is a single discovered pipeline model
type Model interface {
	// GetID returns the database.table identifier
	GetID() string
	// GetKind returns the model kind
	GetKind() Kind
	// GetConfig returns the shared model configuration
	GetConfig() *Config
	// GetValue returns the SQL content of the model
	GetValue() string
}

// NewModel parses a model file into the matching model kind by extension
func NewModel(content []byte, filePath string) (Model, error) {
	ext := filepath.Ext(filePath)

	switch ext {
	case ".sql":
		model, parseErr := NewSQLModel(content)
		if parseErr != nil {
			return nil, parseErr
		}

		return model, nil
	case ".yaml", ".yml":
		model, parseErr := NewAggregateModel(content)
		if parseErr != nil {
			return nil, parseErr
		}

		return model, nil
	}

	return nil, fmt.Errorf("invalid model file type: %s", filePath)
}
