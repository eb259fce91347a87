package etl

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateDate is returned when the per-day aggregates contain the
	// same calendar date more than once
	ErrDuplicateDate = errors.New("duplicate date in daily aggregates")
)

// Trailing window sizes for the daily moving averages, inclusive of the
// current row.
const (
	movingAvgShortWindow = 7
	movingAvgLongWindow  = 30
)

// BuildDailyMetrics applies the ordered window pass over per-day aggregates:
// previous/next-day counts, day-over-day percentage change, and the 7-day
// and 30-day trailing moving averages. Input order does not matter; the
// output is strictly ordered by date with exactly one row per date.
//
// The first day has no predecessor, so its previous-day count and percentage
// change are null by construction.
func BuildDailyMetrics(aggregates []DailyAggregate) ([]DailyMetric, error) {
	rows := make([]DailyAggregate, len(aggregates))
	copy(rows, aggregates)

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date < rows[j].Date
	})

	for i := 1; i < len(rows); i++ {
		if rows[i].Date == rows[i-1].Date {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, rows[i].Date)
		}
	}

	counts := make([]float64, len(rows))
	for i := range rows {
		counts[i] = float64(rows[i].TotalRecords)
	}

	metrics := make([]DailyMetric, len(rows))

	for i := range rows {
		metric := DailyMetric{DailyAggregate: rows[i]}

		if i > 0 {
			prev := rows[i-1].TotalRecords
			metric.PrevDayRecords = &prev
		}

		if i < len(rows)-1 {
			next := rows[i+1].TotalRecords
			metric.NextDayRecords = &next
		}

		metric.PctChange = PctChange(rows[i].TotalRecords, metric.PrevDayRecords)
		metric.MovingAvg7D = TrailingAverage(counts, i, movingAvgShortWindow)
		metric.MovingAvg30D = TrailingAverage(counts, i, movingAvgLongWindow)

		metrics[i] = metric
	}

	return metrics, nil
}
