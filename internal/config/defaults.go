package config

import "github.com/JakeFAU/econ-dashboard/internal/dashboard"

// DefaultProxy is the CORS proxy the published dashboard has always fetched through.
const DefaultProxy = "https://corsproxy.io/?"

const (
	macroSheetURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vQC7Gs2MnP2gCKMnrAtyQ2GBxrC0sM6xx2IlBGJ91ubhMPn1O0FRGNoD7zp-fZFnv6vsrB_u3W2eGAp/pub?gid=1709405390&single=true&output=csv"
	ineCPIURL     = "https://www.ine.gob.bo/wp-integrate/grupo/ipc.php"
	ineTradeURL   = "https://www.ine.gob.bo/wp-integrate/grupo/comex.php"
)

// DefaultDatasets returns the three stock datasets: the macro spreadsheet and the two
// statistics-agency pages.
func DefaultDatasets() []dashboard.Dataset {
	return []dashboard.Dataset{
		{
			Name:   "macro",
			Title:  "PIB y Reservas Internacionales",
			Kind:   dashboard.KindSpreadsheet,
			Source: dashboard.Source{URL: macroSheetURL, Format: "csv"},
			Spreadsheet: dashboard.SpreadsheetOptions{
				CategoryToken: "a",
				Columns: []dashboard.ColumnRule{
					{Field: "gdp", Name: "PIB", Header: "PIB", Match: dashboard.MatchExact},
					{Field: "reserves", Name: "RIN", Header: "RIN", Match: dashboard.MatchExact},
					{Field: "cpi", Name: "IPC", Header: "IPC", Match: dashboard.MatchExact},
					{Field: "trade_balance", Name: "Balanza", Header: "BALANZA", Match: dashboard.MatchContains},
				},
			},
			KPIs: []dashboard.KPISpec{
				{Field: "gdp", Label: "PIB", Unit: "%"},
				{Field: "reserves", Label: "RIN"},
			},
			Chart: "base",
			Panels: []dashboard.PanelSpec{
				{Title: "PIB", Chart: "base", Fields: []string{"gdp"}},
				{Title: "Reservas Internacionales", Chart: "reserves", Fields: []string{"reserves"}},
			},
		},
		{
			Name:   "cpi",
			Title:  "Inflación",
			Kind:   dashboard.KindScraped,
			Source: dashboard.Source{URL: ineCPIURL, Format: "html"},
			Scraped: dashboard.ScrapedOptions{
				AnchorKey:        "mensual",
				LabelField:       "mensual",
				StripProvisional: true,
				Fields: []dashboard.FieldBinding{
					{Key: "datoa", Field: "cpi_12m", Name: "Inflación 12 Meses"},
					{Key: "datoc", Field: "cpi_monthly", Name: "Inflación Mensual"},
				},
				Primary: "cpi_12m",
			},
			KPIs:  []dashboard.KPISpec{{Field: "cpi_12m", Label: "Inflación 12 meses", Unit: "%"}},
			Chart: "cpi",
		},
		{
			Name:   "trade",
			Title:  "Balanza Comercial",
			Kind:   dashboard.KindScraped,
			Source: dashboard.Source{URL: ineTradeURL, Format: "html"},
			Scraped: dashboard.ScrapedOptions{
				AnchorKey:        "mensual",
				LabelField:       "mensual",
				StripProvisional: true,
				Fields: []dashboard.FieldBinding{
					{Key: "saldo", Field: "balance", Name: "Saldo Comercial"},
					{Key: "exportacion", Field: "exports", Name: "Exportaciones"},
					{Key: "importacion", Field: "imports", Name: "Importaciones"},
				},
				Primary: "balance",
			},
			KPIs:   []dashboard.KPISpec{{Field: "balance", Label: "Saldo comercial"}},
			Chart:  "trade",
			Panels: []dashboard.PanelSpec{{Title: "Saldo Comercial", Chart: "trade", Fields: []string{"balance"}}},
		},
	}
}

// DefaultCharts returns the stock chart presets referenced by DefaultDatasets.
func DefaultCharts() map[string]dashboard.ChartPreset {
	return map[string]dashboard.ChartPreset{
		"base": {
			Type:        "bar",
			Height:      250,
			DataLabels:  true,
			StrokeWidth: 2,
			Colors:      []string{"#2563eb"},
		},
		"reserves": {
			Type:        "area",
			Height:      250,
			DataLabels:  true,
			StrokeWidth: 2,
			Colors:      []string{"#10b981"},
		},
		"cpi": {
			Type:        "line",
			Height:      300,
			Toolbar:     true,
			Zoom:        true,
			Animations:  true,
			Tooltip:     true,
			StrokeWidth: 2,
			Curve:       "smooth",
			Colors:      []string{"#ef4444", "#f59e0b"},
			TickAmount:  12,
		},
		"trade": {
			Type:          "bar",
			Height:        300,
			Toolbar:       true,
			Zoom:          true,
			Animations:    true,
			Tooltip:       true,
			StrokeWidth:   2,
			Curve:         "smooth",
			Colors:        []string{"#2563eb"},
			NegativeColor: "#ef4444",
			TickAmount:    10,
		},
	}
}
