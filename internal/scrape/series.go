package scrape

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/normalize"
)

var provisionalMarker = regexp.MustCompile(`\(p\)`)

// StripProvisional removes every "(p)" marker from a period label and trims the result.
func StripProvisional(label string) string {
	if !strings.Contains(label, "(p)") {
		return label
	}
	return strings.TrimSpace(provisionalMarker.ReplaceAllString(label, ""))
}

// ToSeries maps records into a label series and one series per field binding.
//
// Values already use a period decimal separator and are parsed by prefix, so
// unparsable and absent values become NaN in place. A binding whose key appears in
// no record is reported as missing and left unresolved.
func ToSeries(records []Record, opts dashboard.ScrapedOptions) dashboard.Table {
	labelField := opts.LabelField
	if labelField == "" {
		labelField = opts.AnchorKey
	}
	if labelField == "" {
		labelField = DefaultAnchorKey
	}

	table := dashboard.Table{
		Labels: make([]string, len(records)),
		Series: make([]dashboard.Series, 0, len(opts.Fields)),
	}
	for i, record := range records {
		label := text(record.Get(labelField))
		if opts.StripProvisional {
			label = StripProvisional(label)
		}
		table.Labels[i] = label
	}

	for _, binding := range opts.Fields {
		field := binding.Field
		if field == "" {
			field = binding.Key
		}
		name := binding.Name
		if name == "" {
			name = field
		}

		present := false
		for _, record := range records {
			if record.Has(binding.Key) {
				present = true
				break
			}
		}
		if !present {
			table.Series = append(table.Series, dashboard.Series{Field: field, Name: name, Values: []float64{}})
			table.Issues = append(table.Issues, dashboard.Issue{
				Kind:   dashboard.IssueMissingColumn,
				Field:  field,
				Detail: fmt.Sprintf("no record carries key %q", binding.Key),
			})
			continue
		}

		values := make([]float64, len(records))
		malformed := 0
		for i, record := range records {
			values[i] = number(record.Get(binding.Key))
			if math.IsNaN(values[i]) {
				malformed++
			}
		}
		if malformed > 0 {
			table.Issues = append(table.Issues, dashboard.Issue{
				Kind:   dashboard.IssueMalformedNumber,
				Field:  field,
				Detail: fmt.Sprintf("%d of %d values are not numbers", malformed, len(records)),
			})
		}
		table.Series = append(table.Series, dashboard.Series{Field: field, Name: name, Values: values, Resolved: true})
	}
	return table
}

func text(value gjson.Result) string {
	switch value.Type {
	case gjson.String:
		return value.Str
	case gjson.Null:
		return ""
	default:
		return value.Raw
	}
}

func number(value gjson.Result) float64 {
	switch value.Type {
	case gjson.String:
		return normalize.ParseDecimal(value.Str)
	case gjson.Number:
		return value.Num
	default:
		return math.NaN()
	}
}
