// Package detector decides when a statically fetched page must be rendered in a browser.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Heuristic promotes pages that look client-rendered and lack the expected payload.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A zero threshold defaults to 2048 bytes.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote reports whether resp should be re-fetched through a headless browser.
// A page already containing marker never is; neither is a non-200 response.
func (h *Heuristic) ShouldPromote(resp dashboard.FetchResponse, marker string) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if marker != "" && bytes.Contains(body, []byte(marker)) {
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptHeavy(body) {
		return true
	}
	for _, spa := range spaMarkers {
		if bytes.Contains(body, spa) {
			return true
		}
	}
	return false
}

// scriptHeavy reports whether script elements cover at least a quarter of the document.
func scriptHeavy(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for pos < total {
		idx := strings.Index(lower[pos:], openTag)
		if idx < 0 {
			break
		}
		start := pos + idx
		end := total
		if gt := strings.IndexByte(lower[start:], '>'); gt >= 0 {
			content := start + gt + 1
			if closeIdx := strings.Index(lower[content:], closeTag); closeIdx >= 0 {
				end = content + closeIdx + len(closeTag)
			}
		}
		covered += end - start
		pos = end
	}
	return covered*4 >= total && covered > 0
}
