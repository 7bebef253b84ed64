// Package series selects KPI values and chart-ready sequences from cleaned tables.
package series

import (
	"fmt"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Latest returns the last value in source order, which is the KPI convention
// of the dashboard: it is not the maximum nor the most recent by date.
// The second result is false for an empty series.
func Latest(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// LatestLabel returns the label paired with the latest value.
func LatestLabel(labels []string) (string, bool) {
	if len(labels) == 0 {
		return "", false
	}
	return labels[len(labels)-1], true
}

// Chart is an index-aligned label and value pair ready for rendering.
type Chart struct {
	Labels []string
	Values []float64
}

// AsChartSeries passes labels and values through after checking they have the same length.
func AsChartSeries(labels []string, values []float64) (Chart, error) {
	if len(labels) != len(values) {
		return Chart{}, fmt.Errorf("%w: %d labels, %d values", dashboard.ErrLengthMismatch, len(labels), len(values))
	}
	return Chart{Labels: labels, Values: values}, nil
}
