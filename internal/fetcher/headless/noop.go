package headless

import (
	"context"
	"fmt"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Noop stands in for the browser when Chrome cannot be started.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with dashboard.ErrUnsupportedSource.
func (Noop) Fetch(_ context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	return dashboard.FetchResponse{}, fmt.Errorf("%w: headless rendering unavailable for %s", dashboard.ErrUnsupportedSource, request.URL)
}
