// Package etl implements the daily aggregation and business insight rollup
// transforms that run over warehouse pre-aggregates.
package etl

// Granularity is the rollup period unit for business insight rows
type Granularity string

const (
	// GranularityMonthly aggregates daily metrics per calendar month
	GranularityMonthly Granularity = "monthly"
	// GranularityQuarterly aggregates daily metrics per calendar quarter
	GranularityQuarterly Granularity = "quarterly"
	// GranularityAnnual aggregates daily metrics per calendar year
	GranularityAnnual Granularity = "annual"
)

// DailyAggregate is one per-day row produced by the warehouse GROUP BY pass
// over the staging view. Dates are ISO 8601 (YYYY-MM-DD) strings, which order
// lexicographically the same as chronologically.
type DailyAggregate struct {
	Date             string `json:"metric_date"`
	Year             int    `json:"year"`
	Month            int    `json:"month"`
	Day              int    `json:"day"`
	DayOfWeek        int    `json:"day_of_week"`
	TotalRecords     uint64 `json:"total_records,string"`
	SourceFiles      uint64 `json:"source_files,string"`
	MissingFileNames uint64 `json:"missing_file_names,string"`
	MissingLoadTimes uint64 `json:"missing_load_times,string"`
	FirstEventAt     string `json:"first_event_at"`
	LastEventAt      string `json:"last_event_at"`
}

// DailyMetric is a daily aggregate enriched with ordered window statistics.
// Nullable fields are pointers; they serialize to JSON null for the
// warehouse insert.
type DailyMetric struct {
	DailyAggregate

	PrevDayRecords *uint64  `json:"prev_day_records,string"`
	NextDayRecords *uint64  `json:"next_day_records,string"`
	PctChange      *float64 `json:"pct_change"`
	MovingAvg7D    float64  `json:"moving_avg_7d"`
	MovingAvg30D   float64  `json:"moving_avg_30d"`
}

// InsightRow is one business-insight mart row per (granularity, year,
// period). Quarterly rows carry null variability fields; this asymmetry is
// intentional and mirrored from the source pipeline.
type InsightRow struct {
	Granularity Granularity `json:"granularity"`
	Year        int         `json:"year"`
	Period      int         `json:"period"`
	PeriodStart string      `json:"period_start"`

	TotalRecords     uint64 `json:"total_records,string"`
	SourceFiles      uint64 `json:"source_files,string"`
	MissingFileNames uint64 `json:"missing_file_names,string"`
	MissingLoadTimes uint64 `json:"missing_load_times,string"`
	DaysWithData     uint64 `json:"days_with_data,string"`

	QualityPct   float64  `json:"quality_pct"`
	AvgPctChange *float64 `json:"avg_pct_change"`
	AvgMoving7D  float64  `json:"avg_moving_7d"`
	AvgMoving30D float64  `json:"avg_moving_30d"`

	StddevDailyRecords *float64 `json:"stddev_daily_records"`
	MinDailyRecords    *uint64  `json:"min_daily_records,string"`
	MaxDailyRecords    *uint64  `json:"max_daily_records,string"`
}
