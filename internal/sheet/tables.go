package sheet

import (
	"fmt"
	"math"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/normalize"
)

// BuildTables filters rows on the category column and extracts every declared field
// from the retained rows only, so all series share the label indices.
// A field whose header is missing yields an unresolved, empty series and an issue.
func BuildTables(set RowSet, opts dashboard.SpreadsheetOptions) (dashboard.Table, error) {
	if len(set.Rows) == 0 {
		return dashboard.Table{}, fmt.Errorf("build tables: %w", dashboard.ErrEmptyInput)
	}
	idx := ResolveColumns(set.Header, opts.CategoryToken, opts.Columns)

	retained := make([]RawRow, 0, len(set.Rows))
	labels := make([]string, 0, len(set.Rows))
	for _, row := range set.Rows {
		category, ok := row.Cell(idx.Category)
		if !ok || normalize.IsBlank(category) {
			continue
		}
		retained = append(retained, row)
		labels = append(labels, category)
	}

	table := dashboard.Table{Labels: labels, Series: make([]dashboard.Series, 0, len(opts.Columns))}
	for _, rule := range opts.Columns {
		name := rule.Name
		if name == "" {
			name = rule.Header
		}
		column, ok := idx.Column(rule.Field)
		if !ok {
			table.Series = append(table.Series, dashboard.Series{
				Field:  rule.Field,
				Name:   name,
				Values: []float64{},
			})
			table.Issues = append(table.Issues, dashboard.Issue{
				Kind:   dashboard.IssueMissingColumn,
				Field:  rule.Field,
				Detail: fmt.Sprintf("no header matches %q (%s)", rule.Header, matchMode(rule.Match)),
			})
			continue
		}

		values := make([]float64, len(retained))
		malformed := 0
		for i, row := range retained {
			values[i] = normalize.Number(row[column])
			if math.IsNaN(values[i]) {
				malformed++
			}
		}
		table.Series = append(table.Series, dashboard.Series{
			Field:    rule.Field,
			Name:     name,
			Values:   values,
			Resolved: true,
		})
		if malformed > 0 {
			table.Issues = append(table.Issues, dashboard.Issue{
				Kind:   dashboard.IssueMalformedNumber,
				Field:  rule.Field,
				Detail: fmt.Sprintf("%d of %d cells in %q did not parse", malformed, len(retained), column),
			})
		}
	}
	return table, nil
}

func matchMode(m dashboard.MatchMode) dashboard.MatchMode {
	if m == "" {
		return dashboard.MatchExact
	}
	return m
}
