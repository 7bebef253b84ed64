package scrape

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/series"
)

var cpiOptions = dashboard.ScrapedOptions{
	AnchorKey:        DefaultAnchorKey,
	StripProvisional: true,
	Primary:          "cpi_12m",
	Fields: []dashboard.FieldBinding{
		{Key: "datoa", Field: "cpi_12m", Name: "Inflación 12 meses"},
		{Key: "datoc", Field: "cpi_monthly", Name: "Inflación mensual"},
	},
}

func TestToSeriesCPIPage(t *testing.T) {
	t.Parallel()

	records, err := ExtractRecords(cpiPage, DefaultAnchorKey)
	require.NoError(t, err)

	table := ToSeries(records, cpiOptions)
	require.Equal(t, []string{"ene-23", "feb-23"}, table.Labels)
	require.Empty(t, table.Issues)

	annual, ok := table.Lookup("cpi_12m")
	require.True(t, ok)
	require.Equal(t, "Inflación 12 meses", annual.Name)
	require.Equal(t, []float64{2.93, 3.10}, annual.Values)

	monthly, ok := table.Lookup("cpi_monthly")
	require.True(t, ok)
	require.Equal(t, []float64{0.5, 0.3}, monthly.Values)

	kpi, ok := series.Latest(annual.Values)
	require.True(t, ok)
	require.Equal(t, 3.10, kpi)
}

func TestToSeriesTradeBalance(t *testing.T) {
	t.Parallel()

	html := `[{"mensual":"ene-23","saldo":"-120.5","exportacion":"900","importacion":"1020.5"},
{"mensual":"feb-23 (p)","saldo":"80","exportacion":950,"importacion":null}]`
	records, err := ExtractRecords(html, "")
	require.NoError(t, err)

	table := ToSeries(records, dashboard.ScrapedOptions{
		StripProvisional: true,
		Fields: []dashboard.FieldBinding{
			{Key: "saldo", Field: "balance"},
			{Key: "exportacion", Field: "exports"},
			{Key: "importacion", Field: "imports"},
		},
	})
	require.Equal(t, []string{"ene-23", "feb-23"}, table.Labels)

	balance, _ := table.Lookup("balance")
	require.Equal(t, []float64{-120.5, 80}, balance.Values)
	require.Equal(t, "balance", balance.Name)

	exports, _ := table.Lookup("exports")
	require.Equal(t, []float64{900, 950}, exports.Values)

	imports, _ := table.Lookup("imports")
	require.Len(t, imports.Values, 2)
	require.Equal(t, 1020.5, imports.Values[0])
	require.True(t, math.IsNaN(imports.Values[1]))
	require.Equal(t, []dashboard.Issue{{
		Kind:   dashboard.IssueMalformedNumber,
		Field:  "imports",
		Detail: "1 of 2 values are not numbers",
	}}, table.Issues)
}

func TestToSeriesKeepsMarkerWhenNotStripping(t *testing.T) {
	t.Parallel()

	records, err := ParseRecords(`[{"mensual":"ene-23(p)","datoa":"2.93abc"}]`)
	require.NoError(t, err)

	table := ToSeries(records, dashboard.ScrapedOptions{Fields: []dashboard.FieldBinding{{Key: "datoa"}}})
	require.Equal(t, []string{"ene-23(p)"}, table.Labels)
	s, ok := table.Lookup("datoa")
	require.True(t, ok)
	require.Equal(t, []float64{2.93}, s.Values, "values are parsed by prefix")
}

func TestToSeriesMissingKey(t *testing.T) {
	t.Parallel()

	records, err := ParseRecords(`[{"mensual":"ene-23","datoa":"2.93"}]`)
	require.NoError(t, err)

	table := ToSeries(records, cpiOptions)
	monthly, ok := table.Lookup("cpi_monthly")
	require.True(t, ok)
	require.False(t, monthly.Resolved)
	require.Empty(t, monthly.Values)
	_, ok = series.Latest(monthly.Values)
	require.False(t, ok)

	annual, _ := table.Lookup("cpi_12m")
	require.Equal(t, []float64{2.93}, annual.Values)
	require.Len(t, table.Issues, 1)
	require.Equal(t, dashboard.IssueMissingColumn, table.Issues[0].Kind)
}

func TestStripProvisional(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"ene-23(p)":    "ene-23",
		" feb-23 (p) ": "feb-23",
		"(p)mar-23(p)": "mar-23",
		"abr-23":       "abr-23",
		" may-23 ":     " may-23 ",
		"jun-23 (P)":   "jun-23 (P)",
		"(p)":          "",
	}
	for in, want := range tests {
		require.Equal(t, want, StripProvisional(in), in)
	}
}
