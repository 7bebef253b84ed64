package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

type recordingFetcher struct {
	name string
	got  []dashboard.FetchRequest
}

func (r *recordingFetcher) Fetch(_ context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	r.got = append(r.got, request)
	return dashboard.FetchResponse{URL: request.URL, StatusCode: 200, Body: []byte(r.name)}, nil
}

func TestRouterDispatchesOnScheme(t *testing.T) {
	t.Parallel()

	httpF := &recordingFetcher{name: "http"}
	gcsF := &recordingFetcher{name: "gcs"}
	fileF := &recordingFetcher{name: "file"}
	router := &Router{HTTP: httpF, GCS: gcsF, File: fileF}

	tests := map[string]string{
		"https://docs.google.com/spreadsheets/d/x/export?format=csv": "http",
		"HTTP://example.com/a.csv":                                   "http",
		"gs://econ-data/macro.xlsx":                                  "gcs",
		"file://fixtures/macro.csv":                                  "file",
	}
	for raw, want := range tests {
		resp, err := router.Fetch(context.Background(), dashboard.FetchRequest{URL: raw})
		require.NoError(t, err, raw)
		require.Equal(t, want, string(resp.Body), raw)
	}
}

func TestRouterAppliesProxyToHTTPOnly(t *testing.T) {
	t.Parallel()

	httpF := &recordingFetcher{name: "http"}
	fileF := &recordingFetcher{name: "file"}
	router := &Router{HTTP: httpF, File: fileF}

	_, err := router.Fetch(context.Background(), dashboard.FetchRequest{
		URL:   "https://www.ine.gob.bo/ipc?x=1",
		Proxy: "https://corsproxy.io/?",
	})
	require.NoError(t, err)
	require.Equal(t, "https://corsproxy.io/?https%3A%2F%2Fwww.ine.gob.bo%2Fipc%3Fx%3D1", httpF.got[0].URL)

	_, err = router.Fetch(context.Background(), dashboard.FetchRequest{URL: "file://macro.csv", Proxy: "https://corsproxy.io/?"})
	require.NoError(t, err)
	require.Equal(t, "file://macro.csv", fileF.got[0].URL)
}

func TestRouterUnsupported(t *testing.T) {
	t.Parallel()

	router := &Router{HTTP: &recordingFetcher{}}
	for _, raw := range []string{"ftp://example.com/a.csv", "gs://bucket/a.csv", "::not a url"} {
		_, err := router.Fetch(context.Background(), dashboard.FetchRequest{URL: raw})
		require.True(t, errors.Is(err, dashboard.ErrUnsupportedSource), raw)
	}
}

func TestProxiedURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://a.b/c", ProxiedURL("", "https://a.b/c"))
	require.Equal(t, "https://corsproxy.io/?https%3A%2F%2Fa.b%2Fc", ProxiedURL("https://corsproxy.io/?", "https://a.b/c"))
	require.Equal(t, "https://api.allorigins.win/raw?url=https%3A%2F%2Fa.b%2Fc&cache=0",
		ProxiedURL("https://api.allorigins.win/raw?url={url}&cache=0", "https://a.b/c"))
}
