package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stagingModelFile = `---
stage: staging
database: staging
table: stg_transactions
description: Cleaned view over raw rows
dependencies:
  - raw.transactions
columns:
  - name: partition_time
    tests:
      - not_null
---
CREATE OR REPLACE VIEW {{ .self.database }}.{{ .self.table }} AS
SELECT * FROM {{ .dep.raw.transactions.id }}
WHERE partition_time IS NOT NULL
`

const aggregateModelFile = `stage: intermediate
database: intermediate
table: int_daily_metrics
aggregator: daily_metrics
dependencies:
  - staging.stg_transactions
schema: |
  CREATE TABLE IF NOT EXISTS {{ .self.database }}.{{ .self.table }} (
      metric_date Date
  ) ENGINE = MergeTree ORDER BY metric_date
sql: |
  SELECT metric_date FROM {{ .dep.staging.stg_transactions.id }}
`

func TestNewSQLModel(t *testing.T) {
	model, err := NewSQLModel([]byte(stagingModelFile))
	require.NoError(t, err)

	assert.Equal(t, "staging.stg_transactions", model.GetID())
	assert.Equal(t, KindSQL, model.GetKind())
	assert.Equal(t, StageStaging, model.Stage)
	assert.Equal(t, []string{"raw.transactions"}, model.Dependencies)
	assert.Contains(t, model.GetValue(), "CREATE OR REPLACE VIEW")

	// Staging models default to view materialization
	assert.Equal(t, MaterializationView, model.Materialization)

	require.Len(t, model.Columns, 1)
	require.Len(t, model.Columns[0].Tests, 1)
	assert.Equal(t, TestNotNull, model.Columns[0].Tests[0].Type)
}

func TestNewSQLModelInvalidFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no frontmatter", content: "SELECT 1"},
		{name: "unterminated frontmatter", content: "---\nstage: staging\n"},
		{name: "empty body", content: "---\nstage: staging\ndatabase: a\ntable: b\n---\n"},
		{name: "empty frontmatter block", content: "---\n---\nSELECT 1"},
		{name: "missing opening delimiter", content: "stage: staging\n---\nSELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLModel([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewSQLModelBlankFrontmatter(t *testing.T) {
	// A blank (but delimited) frontmatter block parses to an empty config;
	// validation rejects it later instead of the parser blowing up.
	model, err := NewSQLModel([]byte("---\n\n---\nSELECT 1"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1", model.GetValue())
	assert.ErrorIs(t, model.Validate(), ErrDatabaseRequired)
}

func TestNewAggregateModel(t *testing.T) {
	model, err := NewAggregateModel([]byte(aggregateModelFile))
	require.NoError(t, err)

	assert.Equal(t, "intermediate.int_daily_metrics", model.GetID())
	assert.Equal(t, KindAggregate, model.GetKind())
	assert.Equal(t, "daily_metrics", model.Aggregator)
	assert.Contains(t, model.Schema, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, model.GetValue(), "SELECT metric_date")

	// Non-staging models default to table materialization
	assert.Equal(t, MaterializationTable, model.Materialization)
}

func TestAggregateModelValidate(t *testing.T) {
	base := func() *AggregateModel {
		model, err := NewAggregateModel([]byte(aggregateModelFile))
		require.NoError(t, err)
		return model
	}

	tests := []struct {
		name     string
		mutate   func(*AggregateModel)
		expected error
	}{
		{name: "valid", mutate: func(_ *AggregateModel) {}, expected: nil},
		{name: "missing aggregator", mutate: func(m *AggregateModel) { m.Aggregator = "" }, expected: ErrAggregatorRequired},
		{name: "missing schema", mutate: func(m *AggregateModel) { m.Schema = "" }, expected: ErrSchemaRequired},
		{name: "missing dependencies", mutate: func(m *AggregateModel) { m.Dependencies = nil }, expected: ErrDependenciesRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := base()
			tt.mutate(model)

			err := model.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func TestNewModelDispatch(t *testing.T) {
	sqlModel, err := NewModel([]byte(stagingModelFile), "models/staging/stg_transactions.sql")
	require.NoError(t, err)
	assert.Equal(t, KindSQL, sqlModel.GetKind())

	aggModel, err := NewModel([]byte(aggregateModelFile), "models/intermediate/int_daily_metrics.yaml")
	require.NoError(t, err)
	assert.Equal(t, KindAggregate, aggModel.GetKind())

	_, err = NewModel([]byte("whatever"), "models/readme.txt")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected error
	}{
		{
			name:   "valid",
			config: Config{Stage: StageMarts, Database: "marts", Table: "mart_business_insights"},
		},
		{
			name:     "missing database",
			config:   Config{Stage: StageMarts, Table: "t"},
			expected: ErrDatabaseRequired,
		},
		{
			name:     "missing table",
			config:   Config{Stage: StageMarts, Database: "d"},
			expected: ErrTableRequired,
		},
		{
			name:     "missing stage",
			config:   Config{Database: "d", Table: "t"},
			expected: ErrStageRequired,
		},
		{
			name:     "unknown stage",
			config:   Config{Stage: "gold", Database: "d", Table: "t"},
			expected: ErrInvalidStage,
		},
		{
			name:     "bad materialization",
			config:   Config{Stage: StageMarts, Database: "d", Table: "t", Materialization: "incremental"},
			expected: ErrInvalidMaterialization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}
