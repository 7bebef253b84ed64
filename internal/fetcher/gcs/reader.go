// Package gcs reads dataset sources stored as Google Cloud Storage objects.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Reader implements dashboard.Fetcher for gs://bucket/object URLs.
type Reader struct {
	client *storage.Client
}

// New creates a GCS-backed reader.
func New(client *storage.Client) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &Reader{client: client}, nil
}

// Fetch downloads the object named by request.URL.
func (r *Reader) Fetch(ctx context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	bucket, object, err := ParseURL(request.URL)
	if err != nil {
		return dashboard.FetchResponse{}, err
	}
	start := time.Now()
	reader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return dashboard.FetchResponse{}, fmt.Errorf("%w: %s not found: %w", dashboard.ErrTransport, request.URL, err)
		}
		return dashboard.FetchResponse{}, fmt.Errorf("%w: open %s: %w", dashboard.ErrTransport, request.URL, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: read %s: %w", dashboard.ErrTransport, request.URL, err)
	}
	headers := http.Header{}
	if ct := reader.Attrs.ContentType; ct != "" {
		headers.Set("Content-Type", ct)
	}
	return dashboard.FetchResponse{
		URL:        request.URL,
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// ParseURL splits gs://bucket/path/to/object.
func ParseURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "gs" {
		return "", "", fmt.Errorf("%w: not a gs:// url: %q", dashboard.ErrUnsupportedSource, raw)
	}
	object := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", fmt.Errorf("%w: gs url needs bucket and object: %q", dashboard.ErrUnsupportedSource, raw)
	}
	return u.Host, object, nil
}
