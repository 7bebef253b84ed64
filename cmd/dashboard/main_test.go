package main

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

func TestWriteSnapshot(t *testing.T) {
	t.Parallel()

	snap := dashboard.Snapshot{
		RunID:     "run-1",
		UpdatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Datasets: []dashboard.Outcome{{
			Dataset: "macro",
			Status:  dashboard.StatusOK,
			Table: dashboard.Table{
				Labels: []string{"2023"},
				Series: []dashboard.Series{{Field: "gdp", Values: []float64{math.NaN()}, Resolved: true}},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeSnapshot(&buf, snap))
	require.Contains(t, buf.String(), `"run_id": "run-1"`)
	require.Contains(t, buf.String(), `"values": [`)

	err := writeSnapshot(failingWriter{}, snap)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stdout closed")
}
