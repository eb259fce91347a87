package models

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidTestSpec is returned when a test entry has an invalid YAML shape
	ErrInvalidTestSpec = errors.New("test must be a string or a single-key mapping")
	// ErrUnknownTestType is returned when a test type is not recognized
	ErrUnknownTestType = errors.New("unknown test type")
	// ErrAcceptedValuesRequired is returned when accepted_values has no values
	ErrAcceptedValuesRequired = errors.New("accepted_values test requires a non-empty values list")
	// ErrRelationshipRequired is returned when relationship is missing to/field
	ErrRelationshipRequired = errors.New("relationship test requires 'to' and 'field'")
)

// Test types supported by the declarative quality checks
const (
	TestNotNull        = "not_null"
	TestUnique         = "unique"
	TestAcceptedValues = "accepted_values"
	TestRelationship   = "relationship"
)

// TestSpec is one declarative quality test attached to a column. In YAML it
// is either a bare string (not_null, unique) or a single-key mapping carrying
// parameters (accepted_values, relationship).
type TestSpec struct {
	Type string

	// accepted_values
	Values []string

	// relationship: the referenced relation (database.table) and column
	To    string
	Field string
}

type testParams struct {
	Values []string `yaml:"values,omitempty"`
	To     string   `yaml:"to,omitempty"`
	Field  string   `yaml:"field,omitempty"`
}

// UnmarshalYAML implements custom YAML unmarshaling for mixed test shapes
func (t *TestSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Type = node.Value
		return t.validateType()
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return ErrInvalidTestSpec
		}

		t.Type = node.Content[0].Value

		var params testParams
		if err := node.Content[1].Decode(&params); err != nil {
			return fmt.Errorf("failed to parse %s parameters: %w", t.Type, err)
		}

		t.Values = params.Values
		t.To = params.To
		t.Field = params.Field

		return t.validateType()
	case yaml.DocumentNode, yaml.SequenceNode, yaml.AliasNode:
		return ErrInvalidTestSpec
	default:
		return ErrInvalidTestSpec
	}
}

// MarshalYAML implements custom YAML marshaling for mixed test shapes
func (t TestSpec) MarshalYAML() (interface{}, error) {
	switch t.Type {
	case TestAcceptedValues:
		return map[string]testParams{t.Type: {Values: t.Values}}, nil
	case TestRelationship:
		return map[string]testParams{t.Type: {To: t.To, Field: t.Field}}, nil
	default:
		return t.Type, nil
	}
}

func (t *TestSpec) validateType() error {
	switch t.Type {
	case TestNotNull, TestUnique:
		return nil
	case TestAcceptedValues:
		if len(t.Values) == 0 {
			return ErrAcceptedValuesRequired
		}
		return nil
	case TestRelationship:
		if t.To == "" || t.Field == "" {
			return ErrRelationshipRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTestType, t.Type)
	}
}
