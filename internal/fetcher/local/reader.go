// Package local reads dataset sources from a directory on the local filesystem.
package local

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Config captures the parameters for the local reader.
type Config struct {
	// BaseDir is the root that every file:// source must resolve inside.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Reader implements dashboard.Fetcher for file:// URLs.
type Reader struct {
	baseDir string
}

// New creates a reader rooted at cfg.BaseDir.
func New(cfg Config) (*Reader, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	abs, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &Reader{baseDir: abs}, nil
}

// Fetch reads the file named by request.URL. Relative paths resolve against the
// base directory; paths escaping it are rejected.
func (r *Reader) Fetch(_ context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	fullPath, err := r.resolve(request.URL)
	if err != nil {
		return dashboard.FetchResponse{}, err
	}
	start := time.Now()
	// #nosec G304 -- fullPath is confined to baseDir by resolve.
	body, err := os.ReadFile(fullPath)
	if err != nil {
		return dashboard.FetchResponse{}, fmt.Errorf("%w: read %s: %w", dashboard.ErrTransport, request.URL, err)
	}
	return dashboard.FetchResponse{
		URL:        "file://" + fullPath,
		StatusCode: http.StatusOK,
		Headers:    http.Header{},
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

func (r *Reader) resolve(raw string) (string, error) {
	if !strings.HasPrefix(raw, "file://") {
		return "", fmt.Errorf("%w: not a file:// url: %q", dashboard.ErrUnsupportedSource, raw)
	}
	path := strings.TrimPrefix(raw, "file://")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty file path", dashboard.ErrUnsupportedSource)
	}
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.baseDir, path)
	}
	fullPath = filepath.Clean(fullPath)
	if !strings.HasPrefix(fullPath, r.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal detected: %q", dashboard.ErrUnsupportedSource, raw)
	}
	return fullPath, nil
}
