// Package quality runs declarative data quality tests and dataset checks
package quality

import (
	"time"
)

// Check statuses
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// CheckResult is the outcome of one quality check
type CheckResult struct {
	Name     string `json:"name"`
	Model    string `json:"model,omitempty"`
	Column   string `json:"column,omitempty"`
	Status   string `json:"status"`
	Failures uint64 `json:"failures"`
	Detail   string `json:"detail,omitempty"`
}

// Summary aggregates check outcomes into an overall score
type Summary struct {
	TotalChecks  int     `json:"total_checks"`
	PassedChecks int     `json:"passed_checks"`
	FailedChecks int     `json:"failed_checks"`
	ErrorChecks  int     `json:"error_checks"`
	QualityScore float64 `json:"quality_score"`
}

// Report is the full quality report written after a test run
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
	Summary   Summary       `json:"summary"`
}

// Config contains quality check settings
type Config struct {
	// Source relation carrying the raw ingested rows
	SourceDatabase string `yaml:"sourceDatabase"`
	SourceTable    string `yaml:"sourceTable"`

	// Daily metrics relation used by the consistency check
	DailyDatabase string `yaml:"dailyDatabase"`
	DailyTable    string `yaml:"dailyTable"`

	// FreshnessMaxAge is how stale the newest partition may be
	FreshnessMaxAge time.Duration `yaml:"freshnessMaxAge"`
	// CompletenessMinPct is the minimum provenance-column completeness
	CompletenessMinPct float64 `yaml:"completenessMinPct"`
	// ConsistencyMaxCV is the maximum coefficient of variation (percent)
	// of daily record counts over the trailing 30 days
	ConsistencyMaxCV float64 `yaml:"consistencyMaxCV"`

	// ReportDir is where JSON quality reports are written
	ReportDir string `yaml:"reportDir"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.SourceDatabase == "" {
		c.SourceDatabase = "raw"
	}

	if c.SourceTable == "" {
		c.SourceTable = "transactions"
	}

	if c.DailyDatabase == "" {
		c.DailyDatabase = "intermediate"
	}

	if c.DailyTable == "" {
		c.DailyTable = "int_daily_metrics"
	}

	if c.FreshnessMaxAge == 0 {
		c.FreshnessMaxAge = 24 * time.Hour
	}

	if c.CompletenessMinPct == 0 {
		c.CompletenessMinPct = 95
	}

	if c.ConsistencyMaxCV == 0 {
		c.ConsistencyMaxCV = 50
	}

	if c.ReportDir == "" {
		c.ReportDir = "./reports"
	}
}
