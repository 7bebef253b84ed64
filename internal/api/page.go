package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type pageData struct {
	UpdatedAt string
	Panels    []panel
}

type panel struct {
	ID      string
	Title   string
	KPIs    []dashboard.KPI
	Options template.JS
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.LoadAll(r.Context(), s.cfg.Datasets)
	data, err := buildPage(snap, s.cfg.Datasets, s.cfg.Charts)
	if err != nil {
		s.logger.Error("build dashboard page failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render dashboard page failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("write dashboard page failed", zap.Error(err))
	}
}

// buildPage keeps only datasets that loaded: a failed or empty dataset renders
// nothing and never disturbs the others. Panels with no resolved series are skipped.
func buildPage(
	snap dashboard.Snapshot,
	datasets []dashboard.Dataset,
	presets map[string]dashboard.ChartPreset,
) (pageData, error) {
	panelsByDataset := make(map[string][]dashboard.PanelSpec, len(datasets))
	for _, ds := range datasets {
		panelsByDataset[ds.Name] = ds.Panels
	}

	data := pageData{UpdatedAt: snap.UpdatedAt.Format(time.DateTime + " MST")}
	for _, outcome := range snap.Datasets {
		if outcome.Status != dashboard.StatusOK {
			continue
		}
		for _, spec := range panelSpecs(outcome, panelsByDataset[outcome.Dataset]) {
			series := selectSeries(outcome.Table.Series, spec.Fields)
			if len(series) == 0 {
				continue
			}
			options, err := json.Marshal(chartOptions(outcome.Table.Labels, series, presets[spec.Chart]))
			if err != nil {
				return pageData{}, err
			}
			data.Panels = append(data.Panels, panel{
				ID:      panelID(outcome.Dataset, spec.Fields),
				Title:   spec.Title,
				KPIs:    selectKPIs(outcome.KPIs, spec.Fields),
				Options: template.JS(options),
			})
		}
	}
	return data, nil
}

// panelSpecs falls back to one panel drawing every field of the outcome.
func panelSpecs(outcome dashboard.Outcome, declared []dashboard.PanelSpec) []dashboard.PanelSpec {
	if len(declared) == 0 {
		return []dashboard.PanelSpec{{Title: outcome.Title, Chart: outcome.Chart}}
	}
	specs := make([]dashboard.PanelSpec, len(declared))
	for i, spec := range declared {
		if spec.Title == "" {
			spec.Title = outcome.Title
		}
		if spec.Chart == "" {
			spec.Chart = outcome.Chart
		}
		specs[i] = spec
	}
	return specs
}

func panelID(dataset string, fields []string) string {
	if len(fields) == 0 {
		return "chart-" + dataset
	}
	return "chart-" + dataset + "-" + strings.Join(fields, "-")
}

// selectSeries returns the resolved series named by fields in field order; nil
// fields select every resolved series.
func selectSeries(all []dashboard.Series, fields []string) []dashboard.Series {
	var out []dashboard.Series
	if len(fields) == 0 {
		for _, s := range all {
			if s.Resolved {
				out = append(out, s)
			}
		}
		return out
	}
	for _, field := range fields {
		for _, s := range all {
			if s.Field == field && s.Resolved {
				out = append(out, s)
			}
		}
	}
	return out
}

func selectKPIs(all []dashboard.KPI, fields []string) []dashboard.KPI {
	if len(fields) == 0 {
		return all
	}
	var out []dashboard.KPI
	for _, kpi := range all {
		if slices.Contains(fields, kpi.Field) {
			out = append(out, kpi)
		}
	}
	return out
}

type apexSeries struct {
	Name string            `json:"name"`
	Data []dashboard.Float `json:"data"`
}

// chartOptions renders series as ApexCharts options. NaN points encode as null so
// the chart leaves a gap.
func chartOptions(labels []string, series []dashboard.Series, preset dashboard.ChartPreset) map[string]any {
	apex := make([]apexSeries, 0, len(series))
	for _, s := range series {
		data := make([]dashboard.Float, len(s.Values))
		for i, v := range s.Values {
			data[i] = dashboard.Float(v)
		}
		apex = append(apex, apexSeries{Name: s.Name, Data: data})
	}

	chartType := preset.Type
	if chartType == "" {
		chartType = "line"
	}
	height := preset.Height
	if height == 0 {
		height = 300
	}
	xaxis := map[string]any{"categories": labels}
	if preset.TickAmount > 0 {
		xaxis["tickAmount"] = preset.TickAmount
	}
	stroke := map[string]any{"width": preset.StrokeWidth}
	if preset.Curve != "" {
		stroke["curve"] = preset.Curve
	}

	options := map[string]any{
		"chart": map[string]any{
			"type":       chartType,
			"height":     height,
			"toolbar":    map[string]any{"show": preset.Toolbar},
			"zoom":       map[string]any{"enabled": preset.Zoom},
			"animations": map[string]any{"enabled": preset.Animations},
		},
		"series":     apex,
		"xaxis":      xaxis,
		"stroke":     stroke,
		"dataLabels": map[string]any{"enabled": preset.DataLabels},
		"tooltip":    map[string]any{"enabled": preset.Tooltip},
	}
	if len(preset.Colors) > 0 {
		options["colors"] = preset.Colors
	}
	if preset.NegativeColor != "" {
		options["plotOptions"] = map[string]any{
			"bar": map[string]any{
				"colors": map[string]any{
					"ranges": []map[string]any{{"from": -1e15, "to": 0, "color": preset.NegativeColor}},
				},
			},
		}
	}
	return options
}
