// Package pipeline orchestrates model execution against the warehouse
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/steelworks/forge/pkg/etl"
	"github.com/steelworks/forge/pkg/warehouse"
)

var (
	// ErrUnknownAggregator is returned when a model names an unregistered aggregator
	ErrUnknownAggregator = errors.New("unknown aggregator")
)

// Aggregator names usable from aggregate model files
const (
	AggregatorDailyMetrics     = "daily_metrics"
	AggregatorBusinessInsights = "business_insights"
)

// Aggregator runs a built-in Go transform: it reads the pre-aggregated rows
// produced by the model's source query, computes the derived pass, and bulk
// inserts the result into the target table.
type Aggregator interface {
	// Name returns the registry key for this aggregator
	Name() string
	// Run executes the transform and returns the number of rows written
	Run(ctx context.Context, client warehouse.ClientInterface, sourceSQL, targetTable string) (uint64, error)
}

// Registry maps aggregator names to implementations
type Registry map[string]Aggregator

// NewRegistry returns the registry of built-in aggregators
func NewRegistry() Registry {
	return Registry{
		AggregatorDailyMetrics:     &dailyMetricsAggregator{},
		AggregatorBusinessInsights: &businessInsightsAggregator{},
	}
}

// Get returns the aggregator registered under name
func (r Registry) Get(name string) (Aggregator, error) {
	aggregator, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregator, name)
	}

	return aggregator, nil
}

// dailyMetricsAggregator applies the ordered window pass over per-day
// aggregates from the staging view.
type dailyMetricsAggregator struct{}

func (a *dailyMetricsAggregator) Name() string {
	return AggregatorDailyMetrics
}

func (a *dailyMetricsAggregator) Run(ctx context.Context, client warehouse.ClientInterface, sourceSQL, targetTable string) (uint64, error) {
	var aggregates []etl.DailyAggregate
	if err := client.QueryMany(ctx, sourceSQL, &aggregates); err != nil {
		return 0, fmt.Errorf("failed to fetch daily aggregates: %w", err)
	}

	metrics, err := etl.BuildDailyMetrics(aggregates)
	if err != nil {
		return 0, fmt.Errorf("failed to build daily metrics: %w", err)
	}

	if err := client.BulkInsert(ctx, targetTable, metrics); err != nil {
		return 0, fmt.Errorf("failed to insert daily metrics: %w", err)
	}

	return uint64(len(metrics)), nil
}

// businessInsightsAggregator rolls daily metrics up into the
// multi-granularity business insight mart.
type businessInsightsAggregator struct{}

func (a *businessInsightsAggregator) Name() string {
	return AggregatorBusinessInsights
}

func (a *businessInsightsAggregator) Run(ctx context.Context, client warehouse.ClientInterface, sourceSQL, targetTable string) (uint64, error) {
	var metrics []etl.DailyMetric
	if err := client.QueryMany(ctx, sourceSQL, &metrics); err != nil {
		return 0, fmt.Errorf("failed to fetch daily metrics: %w", err)
	}

	insights := etl.BuildBusinessInsights(metrics)

	if err := client.BulkInsert(ctx, targetTable, insights); err != nil {
		return 0, fmt.Errorf("failed to insert business insights: %w", err)
	}

	return uint64(len(insights)), nil
}
