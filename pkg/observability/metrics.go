package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// PipelineRunsTotal tracks the total number of pipeline runs
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// ModelRunsTotal tracks the total number of model executions
	ModelRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_model_runs_total",
			Help: "Total number of model executions",
		},
		[]string{"model", "stage", "status"},
	)

	// ModelDuration measures model execution duration in seconds
	ModelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forge_model_duration_seconds",
			Help:    "Model execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		},
		[]string{"model", "stage"},
	)

	// RowsWritten counts rows written back to the warehouse per model
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_rows_written_total",
			Help: "Total number of rows written to the warehouse",
		},
		[]string{"model"},
	)

	// WarehouseQueries counts warehouse queries executed
	WarehouseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_warehouse_queries_total",
			Help: "Total number of warehouse queries executed",
		},
		[]string{"query_type", "status"}, // query_type: select, insert, ddl; status: success, error
	)

	// WarehouseQueryDuration measures warehouse query execution time
	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forge_warehouse_query_duration_seconds",
			Help:    "Warehouse query execution time",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"query_type"},
	)

	// QualityChecksTotal counts quality check executions
	QualityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_quality_checks_total",
			Help: "Total number of quality checks executed",
		},
		[]string{"check", "status"}, // status: passed, failed, error
	)

	// LastRunTimestamp tracks the completion time of the last pipeline run
	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "forge_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed pipeline run",
		},
		[]string{"status"},
	)

	// ErrorsTotal counts total number of errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
