package series

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Summarize describes the finite values of a series. NaN and infinite entries are
// counted but excluded. It returns false when no finite value exists.
func Summarize(field string, values []float64) (dashboard.Summary, bool) {
	finite := make(stats.Float64Data, 0, len(values))
	nan := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nan++
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return dashboard.Summary{}, false
	}

	lo, err := finite.Min()
	if err != nil {
		return dashboard.Summary{}, false
	}
	hi, err := finite.Max()
	if err != nil {
		return dashboard.Summary{}, false
	}
	mean, err := finite.Mean()
	if err != nil {
		return dashboard.Summary{}, false
	}
	median, err := finite.Median()
	if err != nil {
		return dashboard.Summary{}, false
	}
	return dashboard.Summary{
		Field:    field,
		Count:    len(values),
		NaNCount: nan,
		Min:      dashboard.Float(lo),
		Max:      dashboard.Float(hi),
		Mean:     dashboard.Float(mean),
		Median:   dashboard.Float(median),
	}, true
}
