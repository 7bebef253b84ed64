// Package fetcher routes dataset source URLs to the reader for their scheme.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Router dispatches on the URL scheme: http and https go to HTTP, gs to GCS, file to File.
// A nil reader makes its scheme unsupported.
type Router struct {
	HTTP dashboard.Fetcher
	GCS  dashboard.Fetcher
	File dashboard.Fetcher
}

// Fetch implements dashboard.Fetcher.
func (r *Router) Fetch(ctx context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	u, err := url.Parse(request.URL)
	if err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: parse %q: %w", dashboard.ErrUnsupportedSource, request.URL, err)
	}
	var target dashboard.Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		target = r.HTTP
		if request.Proxy != "" {
			request.URL = ProxiedURL(request.Proxy, request.URL)
		}
	case "gs":
		target = r.GCS
	case "file":
		target = r.File
	}
	if target == nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: no reader for scheme %q", dashboard.ErrUnsupportedSource, u.Scheme)
	}
	return target.Fetch(ctx, request)
}

// ProxiedURL rewrites target to pass through a CORS-style proxy. A proxy containing
// "{url}" has the placeholder replaced; otherwise the escaped target is appended.
func ProxiedURL(proxy, target string) string {
	if proxy == "" {
		return target
	}
	escaped := url.QueryEscape(target)
	if strings.Contains(proxy, "{url}") {
		return strings.ReplaceAll(proxy, "{url}", escaped)
	}
	return proxy + escaped
}
