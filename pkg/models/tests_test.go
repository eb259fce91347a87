package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTestSpecUnmarshalScalar(t *testing.T) {
	var specs []TestSpec
	require.NoError(t, yaml.Unmarshal([]byte("- not_null\n- unique\n"), &specs))

	require.Len(t, specs, 2)
	assert.Equal(t, TestNotNull, specs[0].Type)
	assert.Equal(t, TestUnique, specs[1].Type)
}

func TestTestSpecUnmarshalAcceptedValues(t *testing.T) {
	content := `- accepted_values:
    values:
      - monthly
      - quarterly
      - annual
`

	var specs []TestSpec
	require.NoError(t, yaml.Unmarshal([]byte(content), &specs))

	require.Len(t, specs, 1)
	assert.Equal(t, TestAcceptedValues, specs[0].Type)
	assert.Equal(t, []string{"monthly", "quarterly", "annual"}, specs[0].Values)
}

func TestTestSpecUnmarshalRelationship(t *testing.T) {
	content := `- relationship:
    to: staging.stg_transactions
    field: source_file
`

	var specs []TestSpec
	require.NoError(t, yaml.Unmarshal([]byte(content), &specs))

	require.Len(t, specs, 1)
	assert.Equal(t, TestRelationship, specs[0].Type)
	assert.Equal(t, "staging.stg_transactions", specs[0].To)
	assert.Equal(t, "source_file", specs[0].Field)
}

func TestTestSpecUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected error
	}{
		{name: "unknown type", content: "- positive\n", expected: ErrUnknownTestType},
		{name: "accepted_values without values", content: "- accepted_values: {}\n", expected: ErrAcceptedValuesRequired},
		{name: "relationship without field", content: "- relationship:\n    to: a.b\n", expected: ErrRelationshipRequired},
		{name: "multi-key mapping", content: "- not_null: {}\n  unique: {}\n", expected: ErrInvalidTestSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var specs []TestSpec
			err := yaml.Unmarshal([]byte(tt.content), &specs)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.expected.Error())
		})
	}
}

func TestTestSpecMarshalRoundTrip(t *testing.T) {
	specs := []TestSpec{
		{Type: TestNotNull},
		{Type: TestAcceptedValues, Values: []string{"monthly"}},
		{Type: TestRelationship, To: "a.b", Field: "id"},
	}

	data, err := yaml.Marshal(specs)
	require.NoError(t, err)

	var decoded []TestSpec
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, specs, decoded)
}
