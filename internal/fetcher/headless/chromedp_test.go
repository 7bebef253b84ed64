package headless

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}
	fetcher, err := NewChromedp(Config{MaxParallel: 2, UserAgent: "econ-dashboard/0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer fetcher.Close()
	if cap(fetcher.slots) != 2 {
		t.Fatalf("expected 2 render slots, got %d", cap(fetcher.slots))
	}
	if fetcher.cfg.NavigationTimeout != 45*time.Second || fetcher.cfg.MarkerWait != 10*time.Second {
		t.Fatalf("expected timeout defaults, got %+v", fetcher.cfg)
	}

	unbounded, err := NewChromedp(Config{MarkerWait: 3 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unbounded.Close()
	if unbounded.slots != nil || unbounded.cfg.MarkerWait != 3*time.Second {
		t.Fatalf("expected unbounded renders with a 3s marker wait, got %+v", unbounded.cfg)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{slots: make(chan struct{}, 1)}
	if err := fetcher.acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fetcher.acquire(ctx); err == nil {
		t.Fatal("expected canceled acquire to fail while the slot is held")
	}
	fetcher.release()
	if err := fetcher.acquire(context.Background()); err != nil {
		t.Fatalf("expected slot after release: %v", err)
	}
}

func TestMarkerExpressionQuotesMarker(t *testing.T) {
	t.Parallel()

	got := markerExpression(`[{"mensual"`)
	want := `document.documentElement.outerHTML.includes("[{\"mensual\"")`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestRenderActionsWaitOnlyWithMarker(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{cfg: Config{MarkerWait: time.Second}}
	var html, location string

	plain := fetcher.renderActions(dashboard.FetchRequest{URL: "https://www.ine.gob.bo"}, &html, &location)
	withMarker := fetcher.renderActions(dashboard.FetchRequest{
		URL:    "https://www.ine.gob.bo",
		Marker: `[{"mensual"`,
	}, &html, &location)
	if len(withMarker) != len(plain)+1 {
		t.Fatalf("expected one extra wait action, got %d vs %d", len(withMarker), len(plain))
	}

	withHeaders := fetcher.renderActions(dashboard.FetchRequest{
		URL:     "https://www.ine.gob.bo",
		Headers: http.Header{"Accept-Language": {"es-BO"}},
	}, &html, &location)
	if len(withHeaders) != len(plain)+1 {
		t.Fatalf("expected one extra header action, got %d vs %d", len(withHeaders), len(plain))
	}
}

func TestNetworkHeadersKeepsFirstValue(t *testing.T) {
	t.Parallel()

	got := networkHeaders(http.Header{"Accept-Language": {"es-BO", "es"}, "X-Empty": {""}})
	if got["Accept-Language"] != "es-BO" {
		t.Fatalf("expected first value, got %v", got["Accept-Language"])
	}
	if _, ok := got["X-Empty"]; ok {
		t.Fatalf("expected empty header to be dropped, got %v", got)
	}
}

func TestDocumentResponseResult(t *testing.T) {
	t.Parallel()

	doc := &documentResponse{}
	doc.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://cdn.example/app.js"},
	})
	doc.observe(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  203,
			URL:     "https://www.ine.gob.bo/ipc",
			Headers: network.Headers{"Content-Type": "text/html"},
		},
	})
	status, headers, url := doc.result("https://req", "https://location")
	if status != 203 || headers.Get("Content-Type") != "text/html" || url != "https://www.ine.gob.bo/ipc" {
		t.Fatalf("unexpected result: status=%d headers=%v url=%s", status, headers, url)
	}

	status, headers, url = (&documentResponse{}).result("https://req", "https://location")
	if status != http.StatusOK || url != "https://location" || headers == nil {
		t.Fatalf("expected location fallback, got status=%d url=%s headers=%v", status, url, headers)
	}
	_, _, url = (&documentResponse{}).result("https://req", "")
	if url != "https://req" {
		t.Fatalf("expected request URL fallback, got %s", url)
	}
}

func TestNoopFetcherError(t *testing.T) {
	t.Parallel()

	fetcher := NewNoop()
	_, err := fetcher.Fetch(context.Background(), dashboard.FetchRequest{URL: "https://www.ine.gob.bo"})
	if !errors.Is(err, dashboard.ErrUnsupportedSource) {
		t.Fatalf("expected unsupported source error, got %v", err)
	}
}
