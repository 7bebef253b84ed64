package headless

import (
	"context"
	"errors"
	"testing"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

func TestNoopFetchIsUnsupported(t *testing.T) {
	t.Parallel()

	_, err := NewNoop().Fetch(context.Background(), dashboard.FetchRequest{URL: "https://www.ine.gob.bo/"})
	if !errors.Is(err, dashboard.ErrUnsupportedSource) {
		t.Fatalf("expected unsupported source error, got %v", err)
	}
}
