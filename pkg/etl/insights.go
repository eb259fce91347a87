package etl

import (
	"fmt"
	"sort"
)

// periodKey identifies one rollup bucket within a granularity
type periodKey struct {
	year   int
	period int
}

// BuildBusinessInsights rolls daily metrics up into monthly, quarterly and
// annual business-insight rows, unioned into one granularity-tagged slice
// ordered by (granularity, year, period).
//
// Quarterly rows carry null variability fields (stddev/min/max); monthly and
// annual rows populate them whenever at least one underlying day exists.
func BuildBusinessInsights(metrics []DailyMetric) []InsightRow {
	monthly := rollup(metrics, GranularityMonthly, func(m *DailyMetric) periodKey {
		return periodKey{year: m.Year, period: m.Month}
	})
	quarterly := rollup(metrics, GranularityQuarterly, func(m *DailyMetric) periodKey {
		return periodKey{year: m.Year, period: quarterOf(m.Month)}
	})
	annual := rollup(metrics, GranularityAnnual, func(m *DailyMetric) periodKey {
		return periodKey{year: m.Year, period: m.Year}
	})

	rows := make([]InsightRow, 0, len(monthly)+len(quarterly)+len(annual))
	rows = append(rows, monthly...)
	rows = append(rows, quarterly...)
	rows = append(rows, annual...)

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Granularity != rows[j].Granularity {
			return rows[i].Granularity < rows[j].Granularity
		}
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Period < rows[j].Period
	})

	return rows
}

func rollup(metrics []DailyMetric, granularity Granularity, keyFn func(*DailyMetric) periodKey) []InsightRow {
	buckets := make(map[periodKey][]*DailyMetric)

	for i := range metrics {
		key := keyFn(&metrics[i])
		buckets[key] = append(buckets[key], &metrics[i])
	}

	rows := make([]InsightRow, 0, len(buckets))
	for key, days := range buckets {
		rows = append(rows, buildInsightRow(granularity, key, days))
	}

	return rows
}

func buildInsightRow(granularity Granularity, key periodKey, days []*DailyMetric) InsightRow {
	row := InsightRow{
		Granularity:  granularity,
		Year:         key.year,
		Period:       key.period,
		PeriodStart:  periodStart(granularity, key),
		DaysWithData: uint64(len(days)),
	}

	counts := make([]float64, 0, len(days))
	pctChanges := make([]float64, 0, len(days))
	ma7 := make([]float64, 0, len(days))
	ma30 := make([]float64, 0, len(days))

	for _, day := range days {
		row.TotalRecords += day.TotalRecords
		row.SourceFiles += day.SourceFiles
		row.MissingFileNames += day.MissingFileNames
		row.MissingLoadTimes += day.MissingLoadTimes

		counts = append(counts, float64(day.TotalRecords))
		ma7 = append(ma7, day.MovingAvg7D)
		ma30 = append(ma30, day.MovingAvg30D)

		if day.PctChange != nil {
			pctChanges = append(pctChanges, *day.PctChange)
		}
	}

	row.QualityPct = RatePct(row.MissingFileNames+row.MissingLoadTimes, row.TotalRecords)
	row.AvgMoving7D = Mean(ma7)
	row.AvgMoving30D = Mean(ma30)

	if len(pctChanges) > 0 {
		avg := Mean(pctChanges)
		row.AvgPctChange = &avg
	}

	// Variability statistics are intentionally absent at the quarterly
	// granularity.
	if granularity != GranularityQuarterly && len(days) > 0 {
		stddev := PopStdDev(counts)
		row.StddevDailyRecords = &stddev

		minCount, maxCount := days[0].TotalRecords, days[0].TotalRecords
		for _, day := range days[1:] {
			if day.TotalRecords < minCount {
				minCount = day.TotalRecords
			}
			if day.TotalRecords > maxCount {
				maxCount = day.TotalRecords
			}
		}
		row.MinDailyRecords = &minCount
		row.MaxDailyRecords = &maxCount
	}

	return row
}

// quarterOf maps a calendar month to its quarter: ceil(month/3)
func quarterOf(month int) int {
	return (month + 2) / 3
}

func periodStart(granularity Granularity, key periodKey) string {
	switch granularity {
	case GranularityMonthly:
		return fmt.Sprintf("%04d-%02d-01", key.year, key.period)
	case GranularityQuarterly:
		return fmt.Sprintf("%04d-%02d-01", key.year, (key.period-1)*3+1)
	case GranularityAnnual:
		return fmt.Sprintf("%04d-01-01", key.year)
	default:
		return fmt.Sprintf("%04d-01-01", key.year)
	}
}
