package etl

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// PopStdDev returns the population standard deviation of values. A single
// value yields 0; an empty slice yields 0.
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
}

// PctChange returns the percentage change from prev to current, or nil when
// prev is nil or zero (division-by-zero guard).
func PctChange(current uint64, prev *uint64) *float64 {
	if prev == nil || *prev == 0 {
		return nil
	}

	change := (float64(current) - float64(*prev)) / float64(*prev) * 100

	return &change
}

// RatePct returns part/total*100, clamped to 0 when total is 0.
func RatePct(part, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return float64(part) / float64(total) * 100
}

// TrailingAverage returns the average of values[i-window+1 : i+1], inclusive
// of the current index. Windows at the head of the series are partial.
func TrailingAverage(values []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}

	return Mean(values[start : i+1])
}
