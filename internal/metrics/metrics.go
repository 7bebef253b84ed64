// Package metrics exposes Prometheus collectors for dataset loads and the HTTP surface.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Recorder owns every collector. A nil *Recorder records nothing.
type Recorder struct {
	loadsTotal          *prometheus.CounterVec
	loadDuration        *prometheus.HistogramVec
	malformedCells      *prometheus.CounterVec
	kpiValue            *prometheus.GaugeVec
	headlessPromotions  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors against the provided registry.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_dataset_loads_total",
			Help: "Dataset loads partitioned by dataset and status.",
		}, []string{"dataset", "status"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_dataset_load_duration_seconds",
			Help:    "Wall time of one dataset load, fetch included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"dataset"}),
		malformedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_malformed_cells_total",
			Help: "Cells that did not parse as numbers and were kept as NaN.",
		}, []string{"dataset", "field"}),
		kpiValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_kpi_value",
			Help: "Latest value of each KPI field.",
		}, []string{"dataset", "field"}),
		headlessPromotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_headless_promotions_total",
			Help: "Scraped loads that were re-fetched through a headless browser.",
		}, []string{"dataset"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
	for _, collector := range []prometheus.Collector{
		r.loadsTotal,
		r.loadDuration,
		r.malformedCells,
		r.kpiValue,
		r.headlessPromotions,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register dashboard collector: %w", err)
		}
	}
	return r, nil
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveLoad records one completed dataset load.
func (r *Recorder) ObserveLoad(outcome dashboard.Outcome) {
	if r == nil {
		return
	}
	r.loadsTotal.WithLabelValues(outcome.Dataset, string(outcome.Status)).Inc()
	r.loadDuration.WithLabelValues(outcome.Dataset).Observe(outcome.Duration.Seconds())
	if outcome.UsedHeadless {
		r.headlessPromotions.WithLabelValues(outcome.Dataset).Inc()
	}
	for _, s := range outcome.Table.Series {
		nan := 0
		for _, v := range s.Values {
			if math.IsNaN(v) {
				nan++
			}
		}
		if nan > 0 {
			r.malformedCells.WithLabelValues(outcome.Dataset, s.Field).Add(float64(nan))
		}
	}
	for _, kpi := range outcome.KPIs {
		v := float64(kpi.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.kpiValue.WithLabelValues(outcome.Dataset, kpi.Field).Set(v)
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func (r *Recorder) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, req)

		route := "unknown"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		r.ObserveHTTPRequest(req.Method, route, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
