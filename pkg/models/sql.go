package models

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidFrontmatter is returned when frontmatter is invalid
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
	// ErrSQLContentRequired is returned when SQL content is not specified
	ErrSQLContentRequired = errors.New("sql content is required")
)

// SQLModel is a declarative SQL model with YAML frontmatter. Its content is
// rendered and executed statement by statement against the warehouse.
type SQLModel struct {
	Config  `yaml:",inline"`
	Content string `yaml:"-"`
}

// NewSQLModel creates a new SQL model from file content
func NewSQLModel(content []byte) (*SQLModel, error) {
	delimiter := []byte("---\n")

	parts := bytes.SplitN(content, []byte("\n---\n"), 2)
	if len(parts) != 2 || !bytes.HasPrefix(parts[0], delimiter) {
		return nil, ErrInvalidFrontmatter
	}

	model := &SQLModel{}
	if err := yaml.Unmarshal(bytes.TrimPrefix(parts[0], delimiter), model); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	model.Content = string(parts[1])

	if model.Content == "" {
		return nil, ErrSQLContentRequired
	}

	model.SetDefaults()

	return model, nil
}

// Validate checks if the SQL model is valid
func (m *SQLModel) Validate() error {
	if m.Content == "" {
		return ErrSQLContentRequired
	}

	return m.Config.Validate()
}

// GetKind returns the model kind
func (m *SQLModel) GetKind() Kind {
	return KindSQL
}

// GetConfig returns the model configuration
func (m *SQLModel) GetConfig() *Config {
	return &m.Config
}

// GetValue returns the SQL content
func (m *SQLModel) GetValue() string {
	return m.Content
}
