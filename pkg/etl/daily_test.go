package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(date string, year, month, dayOfMonth int, total uint64) DailyAggregate {
	return DailyAggregate{
		Date:         date,
		Year:         year,
		Month:        month,
		Day:          dayOfMonth,
		TotalRecords: total,
		SourceFiles:  1,
	}
}

func TestBuildDailyMetricsOrdering(t *testing.T) {
	// Input deliberately unordered
	aggregates := []DailyAggregate{
		day("2023-01-03", 2023, 1, 3, 200),
		day("2023-01-01", 2023, 1, 1, 100),
		day("2023-01-02", 2023, 1, 2, 150),
	}

	metrics, err := BuildDailyMetrics(aggregates)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	for i := 1; i < len(metrics); i++ {
		assert.Less(t, metrics[i-1].Date, metrics[i].Date)
	}
}

func TestBuildDailyMetricsDuplicateDate(t *testing.T) {
	aggregates := []DailyAggregate{
		day("2023-01-01", 2023, 1, 1, 100),
		day("2023-01-01", 2023, 1, 1, 150),
	}

	_, err := BuildDailyMetrics(aggregates)
	require.ErrorIs(t, err, ErrDuplicateDate)
}

func TestBuildDailyMetricsFirstDayNulls(t *testing.T) {
	aggregates := []DailyAggregate{
		day("2023-01-01", 2023, 1, 1, 100),
		day("2023-01-02", 2023, 1, 2, 150),
	}

	metrics, err := BuildDailyMetrics(aggregates)
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	first := metrics[0]
	assert.Nil(t, first.PrevDayRecords)
	assert.Nil(t, first.PctChange)
	require.NotNil(t, first.NextDayRecords)
	assert.Equal(t, uint64(150), *first.NextDayRecords)

	last := metrics[1]
	require.NotNil(t, last.PrevDayRecords)
	assert.Equal(t, uint64(100), *last.PrevDayRecords)
	assert.Nil(t, last.NextDayRecords)
}

// Worked example from the pipeline contract: {d1: 100, d2: 150} gives a
// day-2 percentage change of 50.0 and a day-2 7-day moving average of 125.0.
func TestBuildDailyMetricsWorkedExample(t *testing.T) {
	aggregates := []DailyAggregate{
		day("2023-01-01", 2023, 1, 1, 100),
		day("2023-01-02", 2023, 1, 2, 150),
	}

	metrics, err := BuildDailyMetrics(aggregates)
	require.NoError(t, err)

	second := metrics[1]
	require.NotNil(t, second.PctChange)
	assert.InDelta(t, 50.0, *second.PctChange, 1e-9)
	assert.InDelta(t, 125.0, second.MovingAvg7D, 1e-9)
	assert.InDelta(t, 125.0, second.MovingAvg30D, 1e-9)
}

func TestBuildDailyMetricsPctChange(t *testing.T) {
	tests := []struct {
		name      string
		counts    []uint64
		index     int
		want      float64
		wantNull  bool
	}{
		{name: "increase", counts: []uint64{100, 150}, index: 1, want: 50.0},
		{name: "decrease", counts: []uint64{200, 100}, index: 1, want: -50.0},
		{name: "flat", counts: []uint64{100, 100}, index: 1, want: 0.0},
		{name: "prev zero is null", counts: []uint64{0, 100}, index: 1, wantNull: true},
		{name: "first day is null", counts: []uint64{100, 150}, index: 0, wantNull: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aggregates := make([]DailyAggregate, len(tt.counts))
			for i, c := range tt.counts {
				aggregates[i] = day(
					// Dates within a single month for simplicity
					"2023-01-0"+string(rune('1'+i)), 2023, 1, i+1, c,
				)
			}

			metrics, err := BuildDailyMetrics(aggregates)
			require.NoError(t, err)

			got := metrics[tt.index].PctChange
			if tt.wantNull {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

// Moving averages must stay within the min/max daily counts of their window.
func TestBuildDailyMetricsMovingAverageBounds(t *testing.T) {
	counts := []uint64{100, 300, 50, 900, 20, 400, 250, 700, 10, 600}

	aggregates := make([]DailyAggregate, len(counts))
	for i, c := range counts {
		date := "2023-01-" + twoDigits(i+1)
		aggregates[i] = day(date, 2023, 1, i+1, c)
	}

	metrics, err := BuildDailyMetrics(aggregates)
	require.NoError(t, err)

	for i, m := range metrics {
		start := i - 6
		if start < 0 {
			start = 0
		}

		windowMin, windowMax := counts[start], counts[start]
		for _, c := range counts[start : i+1] {
			if c < windowMin {
				windowMin = c
			}
			if c > windowMax {
				windowMax = c
			}
		}

		assert.GreaterOrEqual(t, m.MovingAvg7D, float64(windowMin), "day %d", i)
		assert.LessOrEqual(t, m.MovingAvg7D, float64(windowMax), "day %d", i)
	}
}

func TestBuildDailyMetricsEmptyInput(t *testing.T) {
	metrics, err := BuildDailyMetrics(nil)
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
