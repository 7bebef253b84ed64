// Package scrape pulls an embedded JSON array out of HTML and maps its records into series.
package scrape

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// DefaultAnchorKey is the first key of every record in the agency's embedded arrays.
const DefaultAnchorKey = "mensual"

var (
	patternMu sync.Mutex
	patterns  = map[string]*regexp.Regexp{}
)

func anchorPattern(key string) *regexp.Regexp {
	if key == "" {
		key = DefaultAnchorKey
	}
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patterns[key]; ok {
		return re
	}
	re := regexp.MustCompile(`(?s)\[\{"` + regexp.QuoteMeta(key) + `".+?\}\]`)
	patterns[key] = re
	return re
}

// ExtractJSON returns the first array literal that opens with an object keyed by key
// and ends at the first "}]" after it, scanning across newlines.
func ExtractJSON(html, key string) (string, bool) {
	match := anchorPattern(key).FindString(html)
	if match == "" {
		return "", false
	}
	return match, true
}

// Record is one element of the embedded array.
type Record struct {
	raw gjson.Result
}

// Get returns the raw JSON value stored under key.
func (r Record) Get(key string) gjson.Result {
	return r.raw.Get(gjson.Escape(key))
}

// Has reports whether the record carries key.
func (r Record) Has(key string) bool {
	return r.Get(key).Exists()
}

// String renders the record as JSON.
func (r Record) String() string {
	return r.raw.Raw
}

// ExtractRecords locates and parses the embedded array in html.
func ExtractRecords(html, key string) ([]Record, error) {
	payload, ok := ExtractJSON(html, key)
	if !ok {
		if key == "" {
			key = DefaultAnchorKey
		}
		return nil, fmt.Errorf("%w: no array keyed by %q", dashboard.ErrSourceShapeNotFound, key)
	}
	return ParseRecords(payload)
}

// ParseRecords parses a JSON array of objects.
func ParseRecords(payload string) ([]Record, error) {
	payload = strings.TrimSpace(payload)
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid json", dashboard.ErrMalformedPayload)
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", dashboard.ErrMalformedPayload, parsed.Type)
	}
	elements := parsed.Array()
	if len(elements) == 0 {
		return nil, fmt.Errorf("parse records: %w", dashboard.ErrEmptyInput)
	}
	records := make([]Record, 0, len(elements))
	for i, element := range elements {
		if !element.IsObject() {
			return nil, fmt.Errorf("%w: element %d is not an object", dashboard.ErrMalformedPayload, i)
		}
		records = append(records, Record{raw: element})
	}
	return records, nil
}
