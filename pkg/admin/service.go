// Package admin manages the run-history tracking table
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steelworks/forge/pkg/warehouse"
)

// Config contains run-log table settings
type Config struct {
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "forge_admin"
	}

	if c.Table == "" {
		c.Table = "run_log"
	}
}

// RunRecord is one completed model execution
type RunRecord struct {
	RunID       string `json:"run_id"`
	ModelID     string `json:"model_id"`
	Stage       string `json:"stage"`
	RowsWritten uint64 `json:"rows_written,string"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	DurationMs  uint64 `json:"duration_ms,string"`
	Status      string `json:"status"`
}

// Service manages the run-history table
type Service struct {
	log    logrus.FieldLogger
	client warehouse.ClientInterface
	config *Config
}

// NewService creates a new run-history service
func NewService(log logrus.FieldLogger, client warehouse.ClientInterface, config *Config) *Service {
	config.SetDefaults()

	return &Service{
		log:    log.WithField("service", "admin"),
		client: client,
		config: config,
	}
}

// EnsureTable creates the run-log database and table if they do not exist
func (s *Service) EnsureTable(ctx context.Context) error {
	if err := warehouse.EnsureDatabase(ctx, s.client, s.config.Database); err != nil {
		return err
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
		run_id String,
		model_id String,
		stage String,
		rows_written UInt64,
		started_at DateTime,
		completed_at DateTime,
		duration_ms UInt64,
		status String
	) ENGINE = MergeTree ORDER BY (completed_at, model_id)`, s.config.Database, s.config.Table)

	if _, err := s.client.Execute(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure run log table: %w", err)
	}

	return nil
}

// RecordCompletion records a completed model execution in the run log
func (s *Service) RecordCompletion(ctx context.Context, record *RunRecord) error {
	if err := s.client.BulkInsert(ctx, s.tableRef(), []RunRecord{*record}); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id": record.RunID,
		"model":  record.ModelID,
		"rows":   record.RowsWritten,
		"status": record.Status,
	}).Debug("Recorded model completion")

	return nil
}

// LastRun returns the most recent run record for a model, or nil when the
// model has never run
func (s *Service) LastRun(ctx context.Context, modelID string) (*RunRecord, error) {
	query := fmt.Sprintf(`SELECT
		run_id, model_id, stage, rows_written,
		toString(started_at) AS started_at,
		toString(completed_at) AS completed_at,
		duration_ms, status
	FROM %s
	WHERE model_id = '%s'
	ORDER BY completed_at DESC
	LIMIT 1`, s.tableRef(), modelID)

	var record RunRecord
	if err := s.client.QueryOne(ctx, query, &record); err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	if record.ModelID == "" {
		return nil, nil //nolint:nilnil // No run is a valid empty result
	}

	return &record, nil
}

// RecentRuns returns the most recent run records across all models
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT
		run_id, model_id, stage, rows_written,
		toString(started_at) AS started_at,
		toString(completed_at) AS completed_at,
		duration_ms, status
	FROM %s
	ORDER BY completed_at DESC
	LIMIT %d`, s.tableRef(), limit)

	var records []RunRecord
	if err := s.client.QueryMany(ctx, query, &records); err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}

	return records, nil
}

// TotalRuns returns the number of recorded executions for a model
func (s *Service) TotalRuns(ctx context.Context, modelID string) (uint64, error) {
	query := fmt.Sprintf(
		"SELECT count() AS cnt FROM %s WHERE model_id = '%s'",
		s.tableRef(), modelID,
	)

	var result struct {
		Count uint64 `json:"cnt,string"`
	}

	if err := s.client.QueryOne(ctx, query, &result); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return result.Count, nil
}

func (s *Service) tableRef() string {
	return fmt.Sprintf("%s.%s", s.config.Database, s.config.Table)
}

// NewRecord builds a run record from execution timings
func NewRecord(runID, modelID, stage string, rows uint64, startedAt, completedAt time.Time, status string) *RunRecord {
	return &RunRecord{
		RunID:       runID,
		ModelID:     modelID,
		Stage:       stage,
		RowsWritten: rows,
		StartedAt:   startedAt.UTC().Format("2006-01-02 15:04:05"),
		CompletedAt: completedAt.UTC().Format("2006-01-02 15:04:05"),
		DurationMs:  uint64(completedAt.Sub(startedAt).Milliseconds()),
		Status:      status,
	}
}
