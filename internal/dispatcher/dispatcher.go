// Package dispatcher fans dataset loads out concurrently and gathers a snapshot.
package dispatcher

import (
	"context"
	"sync"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Runner loads one dataset under a shared run ID.
type Runner interface {
	NewRunID() string
	LoadRun(ctx context.Context, runID string, ds dashboard.Dataset) dashboard.Outcome
}

// Dispatcher launches every dataset load together and waits for all of them.
type Dispatcher struct {
	runner Runner
	clock  dashboard.Clock
}

// New creates a Dispatcher.
func New(runner Runner, clock dashboard.Clock) *Dispatcher {
	return &Dispatcher{
		runner: runner,
		clock:  clock,
	}
}

// LoadAll runs every dataset concurrently and returns their outcomes in declaration
// order. Loads share no state, so one failing never changes another's outcome.
func (d *Dispatcher) LoadAll(ctx context.Context, datasets []dashboard.Dataset) dashboard.Snapshot {
	runID := d.runner.NewRunID()
	outcomes := make([]dashboard.Outcome, len(datasets))

	var wg sync.WaitGroup
	for i, ds := range datasets {
		wg.Add(1)
		go func(i int, ds dashboard.Dataset) {
			defer wg.Done()
			outcomes[i] = d.runner.LoadRun(ctx, runID, ds)
		}(i, ds)
	}
	wg.Wait()

	return dashboard.Snapshot{
		RunID:     runID,
		UpdatedAt: d.clock.Now(),
		Datasets:  outcomes,
	}
}
