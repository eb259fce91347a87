package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestServiceLoad(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "staging/stg_transactions.sql", stagingModelFile)
	writeModelFile(t, dir, "intermediate/int_daily_metrics.yaml", aggregateModelFile)

	service := NewService(logrus.New(), &ServiceConfig{Paths: []string{dir}})
	require.NoError(t, service.Load())

	modelList := service.SortedModels()
	require.Len(t, modelList, 2)
	assert.Equal(t, "intermediate.int_daily_metrics", modelList[0].GetID())
	assert.Equal(t, "staging.stg_transactions", modelList[1].GetID())

	assert.True(t, service.DAG().IsExternal("raw.transactions"))
}

func TestServiceLoadDuplicateModel(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "a/stg_transactions.sql", stagingModelFile)
	writeModelFile(t, dir, "b/stg_transactions.sql", stagingModelFile)

	service := NewService(logrus.New(), &ServiceConfig{Paths: []string{dir}})
	require.ErrorIs(t, service.Load(), ErrDuplicateModel)
}

func TestServiceLoadInvalidModel(t *testing.T) {
	dir := t.TempDir()
	// Aggregate model missing its aggregator
	writeModelFile(t, dir, "bad.yaml", `stage: intermediate
database: intermediate
table: bad
dependencies:
  - staging.stg_transactions
schema: CREATE TABLE bad (x UInt8) ENGINE = MergeTree ORDER BY x
sql: SELECT 1
`)

	service := NewService(logrus.New(), &ServiceConfig{Paths: []string{dir}})
	require.ErrorIs(t, service.Load(), ErrModelValidation)
}

func TestServiceLoadMissingDirectory(t *testing.T) {
	service := NewService(logrus.New(), &ServiceConfig{Paths: []string{filepath.Join(t.TempDir(), "nope")}})
	require.NoError(t, service.Load())
	assert.Empty(t, service.SortedModels())
}

func TestModelsForStages(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "staging/stg_transactions.sql", stagingModelFile)
	writeModelFile(t, dir, "intermediate/int_daily_metrics.yaml", aggregateModelFile)

	service := NewService(logrus.New(), &ServiceConfig{Paths: []string{dir}})
	require.NoError(t, service.Load())

	all := service.ModelsForStages(nil)
	require.Len(t, all, 2)
	// Dependency order: staging before intermediate
	assert.Equal(t, "staging.stg_transactions", all[0].GetID())

	staging := service.ModelsForStages([]Stage{StageStaging})
	require.Len(t, staging, 1)
	assert.Equal(t, "staging.stg_transactions", staging[0].GetID())

	marts := service.ModelsForStages([]Stage{StageMarts})
	assert.Empty(t, marts)
}
