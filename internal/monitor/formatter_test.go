package monitor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected string
	}{
		{"normal", 2.5, "2.5 runs/min"},
		{"zero", 0.0, "0.0 runs/min"},
		{"large", 999.9, "999.9 runs/min"},
		{"small", 0.1, "0.1 runs/min"},
		{"very_small", 0.0001, "0.0 runs/min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatRate(tt.rate)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{"seconds", 42.7, "42s"},
		{"zero", 0.0, "0s"},
		{"minutes_and_seconds", 192.0, "3m 12s"},
		{"exact_minute", 60.0, "1m 0s"},
		{"hours_and_minutes", 3840.0, "1h 4m"},
		{"exact_hour", 3600.0, "1h 0m"},
		{"many_hours", 36000.0, "10h 0m"},
		{"negative", -5.0, "-5s"}, // Should handle gracefully
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatElapsed(tt.seconds)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatStageCount(t *testing.T) {
	tests := []struct {
		name     string
		done     int
		total    int
		expected string
	}{
		{"mid_run", 7, 12, "7/12"},
		{"not_started", 0, 12, "0/12"},
		{"complete", 12, 12, "12/12"},
		{"empty_pipeline", 0, 0, "0/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatStageCount(tt.done, tt.total)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		expected string
	}{
		{"normal", 0.985, "98.5%"},
		{"zero", 0.0, "0.0%"},
		{"one", 1.0, "100.0%"},
		{"small", 0.012, "1.2%"},
		{"very_small", 0.0003, "0.0%"},
		{"over_hundred", 1.5, "150.0%"}, // Handle edge case
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatPercentage(tt.ratio)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatRate_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected string
	}{
		{"nan", math.NaN(), "NaN runs/min"},
		{"inf", math.Inf(1), "+Inf runs/min"},
		{"negative", -5.0, "-5.0 runs/min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatRate(tt.rate)
			assert.Equal(t, tt.expected, result)
		})
	}
}
