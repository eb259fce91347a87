package quality

import (
	"context"
	"fmt"

	"github.com/steelworks/forge/pkg/etl"
	"github.com/steelworks/forge/pkg/observability"
	"github.com/steelworks/forge/pkg/warehouse"
)

// RunDatasetChecks executes the built-in dataset-level checks: freshness,
// completeness, consistency and per-model row counts.
func (v *Validator) RunDatasetChecks(ctx context.Context) []CheckResult {
	checks := []func(context.Context) CheckResult{
		v.checkFreshness,
		v.checkCompleteness,
		v.checkConsistency,
	}

	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		result := check(ctx)
		results = append(results, result)

		observability.QualityChecksTotal.WithLabelValues(result.Name, result.Status).Inc()
	}

	results = append(results, v.checkModelCounts(ctx)...)

	return results
}

func (v *Validator) sourceRef() string {
	return fmt.Sprintf("%s.%s", v.config.SourceDatabase, v.config.SourceTable)
}

// checkFreshness verifies the newest partition is recent enough
func (v *Validator) checkFreshness(ctx context.Context) CheckResult {
	result := CheckResult{Name: "data_freshness"}

	query := fmt.Sprintf(`SELECT
		dateDiff('hour', max(partition_time), now()) AS hours_since_update
	FROM %s
	WHERE partition_time IS NOT NULL`, v.sourceRef())

	var row struct {
		HoursSinceUpdate int64 `json:"hours_since_update"`
	}

	if err := v.client.QueryOne(ctx, query, &row); err != nil {
		result.Status = StatusError
		result.Detail = err.Error()
		return result
	}

	maxHours := int64(v.config.FreshnessMaxAge.Hours())
	result.Detail = fmt.Sprintf("last update %dh ago (max %dh)", row.HoursSinceUpdate, maxHours)

	if row.HoursSinceUpdate < maxHours {
		result.Status = StatusPassed
	} else {
		result.Status = StatusFailed
		result.Failures = 1
	}

	return result
}

// checkCompleteness verifies the provenance columns meet the completeness
// threshold
func (v *Validator) checkCompleteness(ctx context.Context) CheckResult {
	result := CheckResult{Name: "data_completeness"}

	query := fmt.Sprintf(`SELECT
		count() AS total_records,
		countIf(partition_time IS NOT NULL) AS valid_timestamps,
		countIf(source_file != '') AS valid_filenames,
		countIf(file_load_time IS NOT NULL) AS valid_loadtimes
	FROM %s`, v.sourceRef())

	var row struct {
		Total           uint64 `json:"total_records,string"`
		ValidTimestamps uint64 `json:"valid_timestamps,string"`
		ValidFilenames  uint64 `json:"valid_filenames,string"`
		ValidLoadtimes  uint64 `json:"valid_loadtimes,string"`
	}

	if err := v.client.QueryOne(ctx, query, &row); err != nil {
		result.Status = StatusError
		result.Detail = err.Error()
		return result
	}

	timestampPct := etl.RatePct(row.ValidTimestamps, row.Total)
	filenamePct := etl.RatePct(row.ValidFilenames, row.Total)

	result.Detail = fmt.Sprintf(
		"timestamps %.2f%%, filenames %.2f%%, load times %.2f%% (min %.0f%%)",
		timestampPct, filenamePct, etl.RatePct(row.ValidLoadtimes, row.Total),
		v.config.CompletenessMinPct,
	)

	if timestampPct > v.config.CompletenessMinPct && filenamePct > v.config.CompletenessMinPct {
		result.Status = StatusPassed
	} else {
		result.Status = StatusFailed
		result.Failures = 1
	}

	return result
}

// checkConsistency verifies the trailing 30 days of daily record counts stay
// within the coefficient-of-variation threshold
func (v *Validator) checkConsistency(ctx context.Context) CheckResult {
	result := CheckResult{Name: "data_consistency"}

	query := fmt.Sprintf(`SELECT total_records
	FROM %s.%s
	ORDER BY metric_date DESC
	LIMIT 30`, v.config.DailyDatabase, v.config.DailyTable)

	var rows []struct {
		TotalRecords uint64 `json:"total_records,string"`
	}

	if err := v.client.QueryMany(ctx, query, &rows); err != nil {
		result.Status = StatusError
		result.Detail = err.Error()
		return result
	}

	if len(rows) == 0 {
		result.Status = StatusFailed
		result.Failures = 1
		result.Detail = "no daily metric rows to check"
		return result
	}

	counts := make([]float64, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, float64(row.TotalRecords))
	}

	mean := etl.Mean(counts)
	if mean == 0 {
		result.Status = StatusFailed
		result.Failures = 1
		result.Detail = "mean daily record count is zero"
		return result
	}

	cv := etl.PopStdDev(counts) / mean * 100
	result.Detail = fmt.Sprintf("coefficient of variation %.2f%% over %d days (max %.0f%%)", cv, len(rows), v.config.ConsistencyMaxCV)

	if cv < v.config.ConsistencyMaxCV {
		result.Status = StatusPassed
	} else {
		result.Status = StatusFailed
		result.Failures = 1
	}

	return result
}

// checkModelCounts verifies every model relation holds at least one row
func (v *Validator) checkModelCounts(ctx context.Context) []CheckResult {
	var results []CheckResult

	for _, model := range v.models.SortedModels() {
		config := model.GetConfig()

		result := CheckResult{
			Name:  fmt.Sprintf("row_count_%s", model.GetID()),
			Model: model.GetID(),
		}

		count, err := warehouse.CountRows(ctx, v.client, config.Database, config.Table)
		if err != nil {
			result.Status = StatusError
			result.Detail = err.Error()
			results = append(results, result)
			continue
		}

		result.Detail = fmt.Sprintf("%d rows", count)

		if count > 0 {
			result.Status = StatusPassed
		} else {
			result.Status = StatusFailed
			result.Failures = 1
		}

		results = append(results, result)

		observability.QualityChecksTotal.WithLabelValues("row_count", result.Status).Inc()
	}

	return results
}
