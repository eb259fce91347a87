package quality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildReport assembles a quality report from check results
func BuildReport(results []CheckResult) *Report {
	report := &Report{
		Timestamp: time.Now(),
		Checks:    results,
	}

	for _, result := range results {
		report.Summary.TotalChecks++

		switch result.Status {
		case StatusPassed:
			report.Summary.PassedChecks++
		case StatusFailed:
			report.Summary.FailedChecks++
		case StatusError:
			report.Summary.ErrorChecks++
		}
	}

	if report.Summary.TotalChecks > 0 {
		report.Summary.QualityScore = float64(report.Summary.PassedChecks) / float64(report.Summary.TotalChecks) * 100
	}

	return report
}

// Passed reports whether every check in the report passed
func (r *Report) Passed() bool {
	return r.Summary.FailedChecks == 0 && r.Summary.ErrorChecks == 0
}

// Write persists the report as JSON under dir and returns the file path
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("data_quality_report_%s.json", r.Timestamp.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
