// Package loader runs one dataset through fetch, decode, adapter and selection.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/econ-dashboard/internal/charset"
	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/fetcher"
	"github.com/JakeFAU/econ-dashboard/internal/metrics"
	"github.com/JakeFAU/econ-dashboard/internal/scrape"
	"github.com/JakeFAU/econ-dashboard/internal/series"
	"github.com/JakeFAU/econ-dashboard/internal/sheet"
)

// RowQuerier returns spreadsheet-shaped rows for SQL sources.
type RowQuerier interface {
	Rows(ctx context.Context, dsn, query string) (sheet.RowSet, error)
}

// Config controls Loader behavior.
type Config struct {
	// Topic receives one notice per outcome when set.
	Topic string
	// Headless enables the browser fallback for scraped datasets that opt in.
	Headless bool
	// ProxyFor resolves the proxy for a dataset. Nil means no proxy.
	ProxyFor func(dashboard.Dataset) string
}

// Loader turns a dataset declaration into a completed Outcome.
type Loader struct {
	fetcher         dashboard.Fetcher
	headlessFetcher dashboard.Fetcher
	detector        dashboard.RenderDetector
	rows            RowQuerier
	publisher       dashboard.Publisher
	hasher          dashboard.Hasher
	clock           dashboard.Clock
	ids             dashboard.IDGenerator
	recorder        *metrics.Recorder
	cfg             Config
	logger          *zap.Logger
	tracer          trace.Tracer
}

const tracerName = "github.com/JakeFAU/econ-dashboard/internal/loader"

// New constructs a Loader. Only fetcher, hasher, clock and ids are required.
func New(
	fetcher dashboard.Fetcher,
	headless dashboard.Fetcher,
	detector dashboard.RenderDetector,
	rows RowQuerier,
	publisher dashboard.Publisher,
	hasher dashboard.Hasher,
	clock dashboard.Clock,
	ids dashboard.IDGenerator,
	recorder *metrics.Recorder,
	cfg Config,
	logger *zap.Logger,
) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher:         fetcher,
		headlessFetcher: headless,
		detector:        detector,
		rows:            rows,
		publisher:       publisher,
		hasher:          hasher,
		clock:           clock,
		ids:             ids,
		recorder:        recorder,
		cfg:             cfg,
		logger:          logger,
		tracer:          otel.Tracer(tracerName),
	}
}

// WithTracerProvider replaces the global tracer provider for this Loader.
func (l *Loader) WithTracerProvider(tp trace.TracerProvider) *Loader {
	l.tracer = tp.Tracer(tracerName)
	return l
}

// NewRunID returns a fresh refresh run ID.
func (l *Loader) NewRunID() string {
	id, err := l.ids.NewID()
	if err != nil {
		l.logger.Warn("run id generation failed", zap.Error(err))
		return strconv.FormatInt(l.clock.Now().UnixNano(), 10)
	}
	return id
}

// Load runs ds under a fresh run ID.
func (l *Loader) Load(ctx context.Context, ds dashboard.Dataset) dashboard.Outcome {
	return l.LoadRun(ctx, l.NewRunID(), ds)
}

// LoadRun runs ds under runID. It never panics and never returns an error: every
// failure is reported on the Outcome, scoped to this dataset alone.
func (l *Loader) LoadRun(ctx context.Context, runID string, ds dashboard.Dataset) (outcome dashboard.Outcome) {
	start := l.clock.Now()
	outcome = dashboard.Outcome{
		RunID:     runID,
		Dataset:   ds.Name,
		Title:     ds.Title,
		Chart:     ds.Chart,
		FetchedAt: start,
		Table:     dashboard.Table{Labels: []string{}, Series: []dashboard.Series{}},
		KPIs:      []dashboard.KPI{},
	}
	logger := l.logger.With(zap.String("run_id", runID), zap.String("dataset", ds.Name))
	ctx, span := l.tracer.Start(ctx, "dataset.load", trace.WithAttributes(
		attribute.String("dataset", ds.Name),
		attribute.String("dataset.kind", string(ds.Kind)),
		attribute.String("run_id", runID),
	))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dataset load panicked", zap.Any("panic", r))
			l.fail(&outcome, fmt.Errorf("panic: %v", r))
		}
		outcome.Duration = l.clock.Now().Sub(start)
		l.recorder.ObserveLoad(outcome)
		l.publishOutcome(ctx, logger, outcome)

		span.SetAttributes(
			attribute.String("status", string(outcome.Status)),
			attribute.Int("labels", len(outcome.Table.Labels)),
			attribute.Bool("headless", outcome.UsedHeadless),
		)
		if outcome.Status == dashboard.StatusFailed {
			span.SetStatus(codes.Error, outcome.ErrorKind)
			span.RecordError(errors.New(outcome.Error))
		}
		span.End()
	}()

	table, err := l.buildTable(ctx, logger, ds, &outcome)
	if err != nil {
		if errors.Is(err, dashboard.ErrEmptyInput) {
			outcome.Status = dashboard.StatusEmpty
			outcome.Error = err.Error()
			outcome.ErrorKind = dashboard.ErrorKind(err)
			logger.Info("dataset is empty", zap.Error(err))
			return outcome
		}
		l.fail(&outcome, err)
		logger.Warn("dataset load failed", zap.String("error_kind", outcome.ErrorKind), zap.Error(err))
		return outcome
	}
	if err := l.fillFromTable(&outcome, ds, table); err != nil {
		l.fail(&outcome, err)
		logger.Error("series selection failed", zap.Error(err))
		return outcome
	}

	for _, issue := range table.Issues {
		logger.Warn("dataset issue",
			zap.String("kind", string(issue.Kind)),
			zap.String("field", issue.Field),
			zap.String("detail", issue.Detail),
		)
	}
	logger.Info("dataset loaded",
		zap.String("status", string(outcome.Status)),
		zap.Int("labels", len(outcome.Table.Labels)),
		zap.Int("kpis", len(outcome.KPIs)),
		zap.Bool("headless", outcome.UsedHeadless),
	)
	return outcome
}

func (l *Loader) fail(outcome *dashboard.Outcome, err error) {
	outcome.Status = dashboard.StatusFailed
	outcome.Error = err.Error()
	outcome.ErrorKind = dashboard.ErrorKind(err)
	outcome.Table = dashboard.Table{Labels: []string{}, Series: []dashboard.Series{}}
	outcome.KPIs = []dashboard.KPI{}
	outcome.Summaries = nil
}

func (l *Loader) buildTable(
	ctx context.Context,
	logger *zap.Logger,
	ds dashboard.Dataset,
	outcome *dashboard.Outcome,
) (dashboard.Table, error) {
	if isSQL(ds.Source.URL) {
		return l.buildFromQuery(ctx, ds, outcome)
	}

	resp, err := l.fetch(ctx, logger, ds)
	if err != nil {
		return dashboard.Table{}, err
	}
	outcome.UsedHeadless = resp.UsedHeadless
	outcome.SourceDigest = l.digest(logger, resp.Body)

	switch ds.Kind {
	case dashboard.KindSpreadsheet:
		var set sheet.RowSet
		if sourceFormat(ds) == "xlsx" {
			set, err = sheet.ReadXLSX(bytes.NewReader(resp.Body), ds.Source.Sheet)
		} else {
			set, err = sheet.ReadCSV(strings.NewReader(charset.ToUTF8(resp.Body)))
		}
		if err != nil {
			return dashboard.Table{}, fmt.Errorf("%w: %w", dashboard.ErrMalformedPayload, err)
		}
		return sheet.BuildTables(set, ds.Spreadsheet)
	case dashboard.KindScraped:
		records, err := scrape.ExtractRecords(charset.ToUTF8(resp.Body), ds.Scraped.AnchorKey)
		if err != nil {
			return dashboard.Table{}, err
		}
		return scrape.ToSeries(records, ds.Scraped), nil
	default:
		return dashboard.Table{}, fmt.Errorf("%w: kind %q", dashboard.ErrUnsupportedSource, ds.Kind)
	}
}

func (l *Loader) buildFromQuery(ctx context.Context, ds dashboard.Dataset, outcome *dashboard.Outcome) (dashboard.Table, error) {
	if ds.Kind != dashboard.KindSpreadsheet {
		return dashboard.Table{}, fmt.Errorf("%w: sql sources feed spreadsheet datasets only", dashboard.ErrUnsupportedSource)
	}
	if l.rows == nil {
		return dashboard.Table{}, fmt.Errorf("%w: no sql row source configured", dashboard.ErrUnsupportedSource)
	}
	set, err := l.rows.Rows(ctx, ds.Source.URL, ds.Source.Query)
	if err != nil {
		return dashboard.Table{}, err
	}
	outcome.SourceDigest = l.digest(l.logger, []byte(strings.Join(set.Header, ",")+fmt.Sprint(len(set.Rows))))
	return sheet.BuildTables(set, ds.Spreadsheet)
}

func (l *Loader) fetch(ctx context.Context, logger *zap.Logger, ds dashboard.Dataset) (dashboard.FetchResponse, error) {
	if l.fetcher == nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: no fetcher configured", dashboard.ErrUnsupportedSource)
	}
	request := dashboard.FetchRequest{Dataset: ds.Name, URL: ds.Source.URL, Proxy: l.proxyFor(ds)}
	resp, err := l.fetcher.Fetch(ctx, request)
	if err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("fetch %s: %w", ds.Source.URL, err)
	}
	logger.Debug("source fetched",
		zap.String("url", resp.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("duration", resp.Duration),
	)
	if promoted, ok := l.maybePromote(ctx, logger, ds, request, resp); ok {
		return promoted, nil
	}
	return resp, nil
}

// maybePromote re-renders a scraped page in a browser when the static body looks
// client-rendered. A failed render keeps the static body.
func (l *Loader) maybePromote(
	ctx context.Context,
	logger *zap.Logger,
	ds dashboard.Dataset,
	request dashboard.FetchRequest,
	resp dashboard.FetchResponse,
) (dashboard.FetchResponse, bool) {
	if !l.cfg.Headless || ds.Kind != dashboard.KindScraped || !ds.Source.Headless {
		return resp, false
	}
	if l.detector == nil || l.headlessFetcher == nil {
		return resp, false
	}
	marker := anchorMarker(ds.Scraped.AnchorKey)
	if !l.detector.ShouldPromote(resp, marker) {
		return resp, false
	}

	headlessResp, err := l.headlessFetcher.Fetch(ctx, dashboard.FetchRequest{
		Dataset: request.Dataset,
		URL:     fetcher.ProxiedURL(request.Proxy, request.URL),
		Headers: request.Headers,
		Marker:  marker,
	})
	if err != nil {
		logger.Warn("headless promotion failed", zap.String("url", request.URL), zap.Error(err))
		return resp, false
	}
	headlessResp.UsedHeadless = true
	logger.Info("headless promotion applied", zap.String("url", request.URL))
	return headlessResp, true
}

func (l *Loader) digest(logger *zap.Logger, body []byte) string {
	if l.hasher == nil {
		return ""
	}
	sum, err := l.hasher.Hash(body)
	if err != nil {
		logger.Warn("hash source body failed", zap.Error(err))
		return ""
	}
	return sum
}

func (l *Loader) proxyFor(ds dashboard.Dataset) string {
	if l.cfg.ProxyFor == nil {
		return ""
	}
	return l.cfg.ProxyFor(ds)
}

// fillFromTable fills the outcome's table, KPIs and summaries from an adapter table.
func (l *Loader) fillFromTable(outcome *dashboard.Outcome, ds dashboard.Dataset, table dashboard.Table) error {
	for _, s := range table.Series {
		if !s.Resolved {
			continue
		}
		if _, err := series.AsChartSeries(table.Labels, s.Values); err != nil {
			return fmt.Errorf("series %q: %w", s.Field, err)
		}
	}
	outcome.Table = table
	if outcome.Table.Labels == nil {
		outcome.Table.Labels = []string{}
	}
	outcome.KPIs = selectKPIs(ds, table)
	outcome.Summaries = summarize(table)

	outcome.Status = dashboard.StatusOK
	if len(table.Labels) == 0 {
		outcome.Status = dashboard.StatusEmpty
		outcome.ErrorKind = dashboard.ErrorKind(dashboard.ErrEmptyInput)
		outcome.Error = "no rows carry a category label"
	}
	return nil
}

func selectKPIs(ds dashboard.Dataset, table dashboard.Table) []dashboard.KPI {
	specs := ds.KPIs
	if len(specs) == 0 {
		specs = defaultKPIs(ds, table)
	}
	period, _ := series.LatestLabel(table.Labels)
	kpis := make([]dashboard.KPI, 0, len(specs))
	for _, spec := range specs {
		s, ok := table.Lookup(spec.Field)
		if !ok || !s.Resolved {
			continue
		}
		value, ok := series.Latest(s.Values)
		if !ok {
			continue
		}
		label := spec.Label
		if label == "" {
			label = s.Name
		}
		kpis = append(kpis, dashboard.KPI{
			Field:   spec.Field,
			Label:   label,
			Value:   dashboard.Float(value),
			Display: FormatKPI(value, spec.Unit),
			Period:  period,
		})
	}
	return kpis
}

func defaultKPIs(ds dashboard.Dataset, table dashboard.Table) []dashboard.KPISpec {
	if ds.Kind == dashboard.KindScraped && ds.Scraped.Primary != "" {
		return []dashboard.KPISpec{{Field: ds.Scraped.Primary}}
	}
	specs := make([]dashboard.KPISpec, 0, len(table.Series))
	for _, s := range table.Series {
		specs = append(specs, dashboard.KPISpec{Field: s.Field})
	}
	return specs
}

func summarize(table dashboard.Table) []dashboard.Summary {
	var out []dashboard.Summary
	for _, s := range table.Series {
		if !s.Resolved {
			continue
		}
		if sum, ok := series.Summarize(s.Field, s.Values); ok {
			out = append(out, sum)
		}
	}
	return out
}

// FormatKPI renders the shortest decimal form of value followed by unit. NaN stays visible.
func FormatKPI(value float64, unit string) string {
	switch {
	case math.IsNaN(value):
		return "NaN" + unit
	case math.IsInf(value, 1):
		return "Infinity" + unit
	case math.IsInf(value, -1):
		return "-Infinity" + unit
	}
	return strconv.FormatFloat(value, 'f', -1, 64) + unit
}

func anchorMarker(key string) string {
	if key == "" {
		key = scrape.DefaultAnchorKey
	}
	return `[{"` + key + `"`
}

func isSQL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return true
	}
	return false
}

func sourceFormat(ds dashboard.Dataset) string {
	if ds.Source.Format != "" {
		return strings.ToLower(ds.Source.Format)
	}
	if u, err := url.Parse(ds.Source.URL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".xlsx":
			return "xlsx"
		case ".csv":
			return "csv"
		}
	}
	if ds.Kind == dashboard.KindScraped {
		return "html"
	}
	return "csv"
}
