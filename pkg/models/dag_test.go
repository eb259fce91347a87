package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqlModelFor(stage Stage, database, table string, deps ...string) *SQLModel {
	model := &SQLModel{
		Config: Config{
			Stage:        stage,
			Database:     database,
			Table:        table,
			Dependencies: deps,
		},
		Content: "SELECT 1",
	}
	model.SetDefaults()

	return model
}

func pipelineModels() []Model {
	return []Model{
		sqlModelFor(StageStaging, "staging", "stg_transactions", "raw.transactions"),
		sqlModelFor(StageIntermediate, "intermediate", "int_daily_metrics", "staging.stg_transactions"),
		sqlModelFor(StageMarts, "marts", "mart_business_insights", "intermediate.int_daily_metrics"),
	}
}

func TestBuildGraphWithExternalSource(t *testing.T) {
	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(pipelineModels()))

	assert.True(t, graph.IsExternal("raw.transactions"))
	assert.False(t, graph.IsExternal("staging.stg_transactions"))

	_, ok := graph.GetModel("staging.stg_transactions")
	assert.True(t, ok)

	_, ok = graph.GetModel("raw.transactions")
	assert.False(t, ok)
}

func TestBuildGraphRejectsCycle(t *testing.T) {
	modelList := []Model{
		sqlModelFor(StageStaging, "a", "x", "b.y"),
		sqlModelFor(StageStaging, "b", "y", "a.x"),
	}

	graph := NewDependencyGraph()
	assert.Error(t, graph.BuildGraph(modelList))
}

func TestExecutionOrder(t *testing.T) {
	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(pipelineModels()))

	ordered := graph.ExecutionOrder()
	require.Len(t, ordered, 3)

	assert.Equal(t, "staging.stg_transactions", ordered[0].GetID())
	assert.Equal(t, "intermediate.int_daily_metrics", ordered[1].GetID())
	assert.Equal(t, "marts.mart_business_insights", ordered[2].GetID())
}

func TestExecutionOrderAlphabeticalTieBreak(t *testing.T) {
	modelList := []Model{
		sqlModelFor(StageStaging, "staging", "stg_b"),
		sqlModelFor(StageStaging, "staging", "stg_a"),
	}

	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(modelList))

	ordered := graph.ExecutionOrder()
	require.Len(t, ordered, 2)
	assert.Equal(t, "staging.stg_a", ordered[0].GetID())
	assert.Equal(t, "staging.stg_b", ordered[1].GetID())
}

func TestDependenciesAndDependents(t *testing.T) {
	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(pipelineModels()))

	assert.Equal(t, []string{"staging.stg_transactions"}, graph.GetDependencies("intermediate.int_daily_metrics"))
	assert.Equal(t, []string{"marts.mart_business_insights"}, graph.GetDependents("intermediate.int_daily_metrics"))
	assert.Empty(t, graph.GetDependents("marts.mart_business_insights"))
}

func TestGetDAGInfo(t *testing.T) {
	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(pipelineModels()))

	info := graph.GetDAGInfo()

	assert.Equal(t, 3, info.TotalModels)
	assert.Equal(t, 3, info.MaxLevel)
	assert.Equal(t, []string{"raw.transactions"}, info.RootNodes)
	assert.Equal(t, []string{"staging.stg_transactions"}, info.Levels[1])
	assert.Equal(t, []string{"marts.mart_business_insights"}, info.Levels[3])
}

func TestGenerateDOTFormat(t *testing.T) {
	graph := NewDependencyGraph()
	require.NoError(t, graph.BuildGraph(pipelineModels()))

	dot := graph.GenerateDOTFormat()

	assert.Contains(t, dot, "digraph models {")
	assert.Contains(t, dot, `"raw.transactions" [shape=box, style=filled, fillcolor=lightblue];`)
	assert.Contains(t, dot, `"raw.transactions" -> "staging.stg_transactions";`)
	assert.Contains(t, dot, `"intermediate.int_daily_metrics" -> "marts.mart_business_insights";`)
}
