package sheet

import (
	"strings"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// DefaultCategoryToken matches headers such as "Año", "Anio" or "Year".
const DefaultCategoryToken = "a"

// ColumnIndex is the header resolved for the category column and for every declared field.
type ColumnIndex struct {
	Category string
	columns  map[string]string
}

// Column returns the header resolved for field.
func (c ColumnIndex) Column(field string) (string, bool) {
	header, ok := c.columns[field]
	return header, ok
}

// ResolveColumns resolves the category column and each rule against header, in header order.
// The first matching header wins, so the same header line always resolves the same way.
func ResolveColumns(header []string, token string, rules []dashboard.ColumnRule) ColumnIndex {
	idx := ColumnIndex{
		Category: CategoryColumn(header, token),
		columns:  make(map[string]string, len(rules)),
	}
	for _, rule := range rules {
		if h, ok := matchHeader(header, rule); ok {
			idx.columns[rule.Field] = h
		}
	}
	return idx
}

// CategoryColumn returns the first header whose lowercased text contains token,
// falling back to the first header.
func CategoryColumn(header []string, token string) string {
	if len(header) == 0 {
		return ""
	}
	if token == "" {
		token = DefaultCategoryToken
	}
	needle := strings.ToLower(token)
	for _, h := range header {
		if strings.Contains(strings.ToLower(h), needle) {
			return h
		}
	}
	return header[0]
}

func matchHeader(header []string, rule dashboard.ColumnRule) (string, bool) {
	if rule.Header == "" {
		return "", false
	}
	want := strings.ToUpper(rule.Header)
	for _, h := range header {
		got := strings.ToUpper(h)
		switch rule.Match {
		case dashboard.MatchContains:
			if strings.Contains(got, want) {
				return h, true
			}
		default:
			if got == want {
				return h, true
			}
		}
	}
	return "", false
}
