package dashboard

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Kind selects the adapter used for a dataset.
type Kind string

// Supported dataset kinds.
const (
	KindSpreadsheet Kind = "spreadsheet"
	KindScraped     Kind = "scraped"
)

// MatchMode controls how a column rule compares against header text.
type MatchMode string

// Supported header match modes. Both are case-insensitive.
const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
)

// Status summarizes a dataset load.
type Status string

// Dataset load statuses.
const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// IssueKind labels a non-fatal condition found while building a table.
type IssueKind string

// Non-fatal issue kinds.
const (
	IssueMissingColumn   IssueKind = "missing_column"
	IssueMalformedNumber IssueKind = "malformed_number"
)

// Dataset declares one dashboard data source and how to turn it into series.
type Dataset struct {
	Name        string             `mapstructure:"name" json:"name"`
	Title       string             `mapstructure:"title" json:"title"`
	Kind        Kind               `mapstructure:"kind" json:"kind"`
	Source      Source             `mapstructure:"source" json:"source"`
	Spreadsheet SpreadsheetOptions `mapstructure:"spreadsheet" json:"spreadsheet"`
	Scraped     ScrapedOptions     `mapstructure:"scraped" json:"scraped"`
	KPIs        []KPISpec          `mapstructure:"kpis" json:"kpis"`
	Chart       string             `mapstructure:"chart" json:"chart"`
	Panels      []PanelSpec        `mapstructure:"panels" json:"panels,omitempty"`
}

// PanelSpec draws a subset of a dataset's fields as one chart. A dataset without
// panels draws every resolved series in a single chart using its Chart preset.
type PanelSpec struct {
	Title  string   `mapstructure:"title" json:"title"`
	Chart  string   `mapstructure:"chart" json:"chart"`
	Fields []string `mapstructure:"fields" json:"fields"`
}

// Source locates the raw text of a dataset.
type Source struct {
	URL      string `mapstructure:"url" json:"url"`
	Format   string `mapstructure:"format" json:"format"`
	Sheet    string `mapstructure:"sheet" json:"sheet,omitempty"`
	Query    string `mapstructure:"query" json:"-"`
	Proxy    string `mapstructure:"proxy" json:"-"`
	Headless bool   `mapstructure:"headless" json:"headless"`
}

// SpreadsheetOptions configures header inference for row-shaped sources.
type SpreadsheetOptions struct {
	// CategoryToken is matched case-insensitively as a substring of the category header.
	CategoryToken string       `mapstructure:"category_token" json:"category_token"`
	Columns       []ColumnRule `mapstructure:"columns" json:"columns"`
}

// ColumnRule maps a logical field to a header.
type ColumnRule struct {
	Field  string    `mapstructure:"field" json:"field"`
	Name   string    `mapstructure:"name" json:"name"`
	Header string    `mapstructure:"header" json:"header"`
	Match  MatchMode `mapstructure:"match" json:"match"`
}

// ScrapedOptions configures extraction and field mapping for an embedded JSON array.
type ScrapedOptions struct {
	AnchorKey        string         `mapstructure:"anchor_key" json:"anchor_key"`
	LabelField       string         `mapstructure:"label_field" json:"label_field"`
	StripProvisional bool           `mapstructure:"strip_provisional" json:"strip_provisional"`
	Fields           []FieldBinding `mapstructure:"fields" json:"fields"`
	Primary          string         `mapstructure:"primary" json:"primary"`
}

// FieldBinding maps a record key to a named series.
type FieldBinding struct {
	Key   string `mapstructure:"key" json:"key"`
	Field string `mapstructure:"field" json:"field"`
	Name  string `mapstructure:"name" json:"name"`
}

// KPISpec requests a headline value for a field.
type KPISpec struct {
	Field string `mapstructure:"field" json:"field"`
	Label string `mapstructure:"label" json:"label"`
	Unit  string `mapstructure:"unit" json:"unit"`
}

// Series is one ordered value sequence of a table.
type Series struct {
	Field    string
	Name     string
	Values   []float64
	Resolved bool
}

// MarshalJSON writes NaN and infinities as null so charts show a gap.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"field":`)
	field, err := json.Marshal(s.Field)
	if err != nil {
		return nil, err
	}
	buf.Write(field)
	buf.WriteString(`,"name":`)
	name, err := json.Marshal(s.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	buf.WriteString(`,"resolved":`)
	buf.WriteString(strconv.FormatBool(s.Resolved))
	buf.WriteString(`,"values":[`)
	for i, v := range s.Values {
		if i > 0 {
			buf.WriteByte(',')
		}
		encoded, _ := Float(v).MarshalJSON()
		buf.Write(encoded)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// Table is the common output of every adapter: labels plus index-aligned series.
type Table struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
	Issues []Issue  `json:"issues,omitempty"`
}

// Lookup returns the series for field.
func (t Table) Lookup(field string) (Series, bool) {
	for _, s := range t.Series {
		if s.Field == field {
			return s, true
		}
	}
	return Series{}, false
}

// Issue records a non-fatal condition scoped to one field.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Field  string    `json:"field"`
	Detail string    `json:"detail"`
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// KPI is the latest value of a series, formatted for display.
type KPI struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Value   Float  `json:"value"`
	Display string `json:"display"`
	Period  string `json:"period"`
}

// Summary describes the finite values of a series. A statistic that overflows,
// such as the mean of values near the float64 limit, encodes as null.
type Summary struct {
	Field    string `json:"field"`
	Count    int    `json:"count"`
	NaNCount int    `json:"nan_count"`
	Min      Float  `json:"min"`
	Max      Float  `json:"max"`
	Mean     Float  `json:"mean"`
	Median   Float  `json:"median"`
}

// Outcome is the completed result of one dataset load.
type Outcome struct {
	RunID        string        `json:"run_id"`
	Dataset      string        `json:"dataset"`
	Title        string        `json:"title"`
	Chart        string        `json:"chart,omitempty"`
	Status       Status        `json:"status"`
	Table        Table         `json:"table"`
	KPIs         []KPI         `json:"kpis"`
	Summaries    []Summary     `json:"summaries,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	SourceDigest string        `json:"source_digest,omitempty"`
	UsedHeadless bool          `json:"used_headless"`
	FetchedAt    time.Time     `json:"fetched_at"`
	Duration     time.Duration `json:"duration_ns"`
}

// Snapshot groups the outcomes of one dashboard refresh in declaration order.
type Snapshot struct {
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Datasets  []Outcome `json:"datasets"`
}

// FetchRequest captures everything needed to fetch a source.
type FetchRequest struct {
	Dataset string
	URL     string
	Proxy   string
	Headers http.Header
	// Marker is text the rendered document should contain before it is captured.
	// Only renderers that wait on scripts use it.
	Marker string
}

// FetchResponse is the raw text returned by a Fetcher.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// ChartPreset carries the cosmetic chart options a dataset renders with.
type ChartPreset struct {
	Type          string   `mapstructure:"type" json:"type"`
	Height        int      `mapstructure:"height" json:"height"`
	Toolbar       bool     `mapstructure:"toolbar" json:"toolbar"`
	Zoom          bool     `mapstructure:"zoom" json:"zoom"`
	Animations    bool     `mapstructure:"animations" json:"animations"`
	DataLabels    bool     `mapstructure:"data_labels" json:"data_labels"`
	Tooltip       bool     `mapstructure:"tooltip" json:"tooltip"`
	StrokeWidth   int      `mapstructure:"stroke_width" json:"stroke_width"`
	Curve         string   `mapstructure:"curve" json:"curve,omitempty"`
	Colors        []string `mapstructure:"colors" json:"colors,omitempty"`
	NegativeColor string   `mapstructure:"negative_color" json:"negative_color,omitempty"`
	TickAmount    int      `mapstructure:"tick_amount" json:"tick_amount,omitempty"`
}
