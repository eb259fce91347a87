package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{42}, want: 42},
		{name: "several", values: []float64{100, 150}, want: 125},
		{name: "negative", values: []float64{-10, 10}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Mean(tt.values), 1e-9)
		})
	}
}

func TestPopStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single value is zero", values: []float64{42}, want: 0},
		{name: "identical values", values: []float64{5, 5, 5, 5}, want: 0},
		{name: "known spread", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PopStdDev(tt.values), 1e-9)
		})
	}
}

func TestPctChange(t *testing.T) {
	prev := func(v uint64) *uint64 { return &v }

	tests := []struct {
		name     string
		current  uint64
		prev     *uint64
		want     float64
		wantNull bool
	}{
		{name: "nil prev", current: 100, prev: nil, wantNull: true},
		{name: "zero prev", current: 100, prev: prev(0), wantNull: true},
		{name: "increase", current: 150, prev: prev(100), want: 50},
		{name: "decrease", current: 50, prev: prev(100), want: -50},
		{name: "unchanged", current: 100, prev: prev(100), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PctChange(tt.current, tt.prev)
			if tt.wantNull {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestRatePct(t *testing.T) {
	assert.Zero(t, RatePct(10, 0))
	assert.InDelta(t, 10.0, RatePct(10, 100), 1e-9)
	assert.InDelta(t, 100.0, RatePct(100, 100), 1e-9)
}

func TestTrailingAverage(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	// Partial window at the head
	assert.InDelta(t, 10, TrailingAverage(values, 0, 3), 1e-9)
	assert.InDelta(t, 15, TrailingAverage(values, 1, 3), 1e-9)
	// Full windows
	assert.InDelta(t, 20, TrailingAverage(values, 2, 3), 1e-9)
	assert.InDelta(t, 30, TrailingAverage(values, 3, 3), 1e-9)
}
