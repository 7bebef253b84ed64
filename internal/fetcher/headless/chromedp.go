// Package headless renders pages in headless Chrome for sources that build their data client-side.
package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

const (
	defaultNavTimeout   = 45 * time.Second
	defaultMarkerWait   = 10 * time.Second
	markerPollInterval  = 100 * time.Millisecond
	renderedDocSelector = "html"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// MarkerWait bounds how long a page may take to expose FetchRequest.Marker after
	// the body is ready. The DOM is captured either way.
	MarkerWait time.Duration
}

// Fetcher implements dashboard.Fetcher using chromedp and headless Chrome.
type Fetcher struct {
	cfg         Config
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. MaxParallel of zero
// leaves renders unbounded.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.MarkerWait <= 0 {
		cfg.MarkerWait = defaultMarkerWait
	}
	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.DisableGPU,
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		slots:       slots,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders request.URL and returns the DOM once request.Marker shows up or
// MarkerWait runs out. Navigation failures and non-2xx documents wrap
// dashboard.ErrTransport.
func (f *Fetcher) Fetch(ctx context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	if err := f.acquire(ctx); err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: %w", dashboard.ErrTransport, err)
	}
	defer f.release()

	tabCtx, closeTab := chromedp.NewContext(f.allocator)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancel()

	doc := &documentResponse{}
	chromedp.ListenTarget(tabCtx, doc.observe)

	start := time.Now()
	var html, location string
	if err := chromedp.Run(tabCtx, f.renderActions(request, &html, &location)...); err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: render %s: %w", dashboard.ErrTransport, request.URL, err)
	}

	status, headers, finalURL := doc.result(request.URL, location)
	if status < 200 || status > 299 {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: %s rendered with status %d", dashboard.ErrTransport, finalURL, status)
	}
	return dashboard.FetchResponse{
		URL:          finalURL,
		StatusCode:   status,
		Headers:      headers,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (f *Fetcher) renderActions(request dashboard.FetchRequest, html, location *string) []chromedp.Action {
	actions := []chromedp.Action{network.Enable()}
	if len(request.Headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(networkHeaders(request.Headers)))
	}
	actions = append(actions,
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if request.Marker != "" {
		actions = append(actions, f.waitForMarker(request.Marker))
	}
	return append(actions,
		chromedp.Location(location),
		chromedp.OuterHTML(renderedDocSelector, html, chromedp.ByQuery),
	)
}

// waitForMarker polls the live document for marker. Running out of time is not an
// error: the adapter reports the missing shape on the captured DOM.
func (f *Fetcher) waitForMarker(marker string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var found bool
		err := chromedp.Poll(markerExpression(marker), &found,
			chromedp.WithPollingInterval(markerPollInterval),
			chromedp.WithPollingTimeout(f.cfg.MarkerWait),
		).Do(ctx)
		if err != nil && !errors.Is(err, chromedp.ErrPollingTimeout) {
			return fmt.Errorf("wait for data marker: %w", err)
		}
		return nil
	})
}

// markerExpression builds the JavaScript predicate that is true once the document
// source contains marker.
func markerExpression(marker string) string {
	quoted, _ := json.Marshal(marker)
	return "document.documentElement.outerHTML.includes(" + string(quoted) + ")"
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.slots == nil {
		return nil
	}
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.slots == nil {
		return
	}
	<-f.slots
}

// documentResponse keeps the last main-document response seen by the tab.
type documentResponse struct {
	mu      sync.Mutex
	status  int
	url     string
	headers http.Header
}

func (d *documentResponse) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range resp.Response.Headers {
		headers.Set(key, fmt.Sprint(value))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = int(resp.Response.Status)
	d.url = resp.Response.URL
	d.headers = headers
}

// result falls back to the tab location, then the requested URL, and assumes 200
// when no document response was observed.
func (d *documentResponse) result(requestURL, location string) (int, http.Header, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, finalURL, headers := d.status, d.url, d.headers.Clone()
	if finalURL == "" {
		finalURL = location
	}
	if finalURL == "" {
		finalURL = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers, finalURL
}

func networkHeaders(h http.Header) network.Headers {
	out := make(network.Headers, len(h))
	for key := range h {
		if v := h.Get(key); v != "" {
			out[key] = v
		}
	}
	return out
}
