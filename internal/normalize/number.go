// Package normalize converts locale-formatted cell text into float64 values.
package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Number converts a cell into a float64.
//
// Null and blank cells become 0 so one empty cell never fails a load. Strings are
// trimmed, their first comma becomes the decimal point, and the result is parsed
// with ParseDecimal; text without a numeric prefix yields NaN, which callers keep
// in place so the series stays aligned with its labels. Numeric kinds pass through.
func Number(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case *string:
		if v == nil {
			return 0
		}
		return numberFromText(*v)
	case string:
		return numberFromText(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func numberFromText(s string) float64 {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	return ParseDecimal(strings.Replace(trimmed, ",", ".", 1))
}

var decimalPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ParseDecimal parses the longest decimal prefix of s after leading whitespace,
// the way browsers' parseFloat does: "2.93" is 2.93, "12abc" is 12, "abc" is NaN.
// Only the period is a decimal separator here.
func ParseDecimal(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	match := decimalPrefix.FindString(s)
	if match == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(match, "+-") {
	case "Infinity":
		if strings.HasPrefix(match, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		// Out-of-range literals saturate to ±Inf or 0, matching parseFloat.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}
