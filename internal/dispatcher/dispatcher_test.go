package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

type fakeRunner struct {
	mu      sync.Mutex
	delays  map[string]time.Duration
	status  map[string]dashboard.Status
	runIDs  []string
	started chan string
}

func (r *fakeRunner) NewRunID() string {
	return "run-42"
}

func (r *fakeRunner) LoadRun(_ context.Context, runID string, ds dashboard.Dataset) dashboard.Outcome {
	r.mu.Lock()
	r.runIDs = append(r.runIDs, runID)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- ds.Name
	}
	time.Sleep(r.delays[ds.Name])
	return dashboard.Outcome{RunID: runID, Dataset: ds.Name, Status: r.status[ds.Name]}
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time {
	return c.now
}

func TestLoadAllKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		delays: map[string]time.Duration{"macro": 30 * time.Millisecond, "cpi": 10 * time.Millisecond},
		status: map[string]dashboard.Status{
			"macro": dashboard.StatusOK,
			"cpi":   dashboard.StatusFailed,
			"trade": dashboard.StatusEmpty,
		},
	}
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	d := New(runner, fakeClock{now: now})

	snap := d.LoadAll(context.Background(), []dashboard.Dataset{{Name: "macro"}, {Name: "cpi"}, {Name: "trade"}})

	require.Equal(t, "run-42", snap.RunID)
	require.Equal(t, now, snap.UpdatedAt)
	require.Len(t, snap.Datasets, 3)
	require.Equal(t, "macro", snap.Datasets[0].Dataset)
	require.Equal(t, dashboard.StatusOK, snap.Datasets[0].Status)
	require.Equal(t, "cpi", snap.Datasets[1].Dataset)
	require.Equal(t, dashboard.StatusFailed, snap.Datasets[1].Status)
	require.Equal(t, "trade", snap.Datasets[2].Dataset)
	require.Equal(t, []string{"run-42", "run-42", "run-42"}, runner.runIDs)
}

func TestLoadAllRunsConcurrently(t *testing.T) {
	t.Parallel()

	started := make(chan string, 3)
	runner := &fakeRunner{started: started, delays: map[string]time.Duration{
		"macro": 200 * time.Millisecond,
		"cpi":   200 * time.Millisecond,
		"trade": 200 * time.Millisecond,
	}}
	d := New(runner, fakeClock{})

	done := make(chan dashboard.Snapshot, 1)
	go func() {
		done <- d.LoadAll(context.Background(), []dashboard.Dataset{{Name: "macro"}, {Name: "cpi"}, {Name: "trade"}})
	}()

	seen := map[string]bool{}
	for range 3 {
		select {
		case name := <-started:
			seen[name] = true
		case <-time.After(150 * time.Millisecond):
			t.Fatal("loads did not start together")
		}
	}
	require.Len(t, seen, 3)

	select {
	case snap := <-done:
		require.Len(t, snap.Datasets, 3)
	case <-time.After(time.Second):
		t.Fatal("LoadAll did not return")
	}
}

func TestLoadAllWithNoDatasets(t *testing.T) {
	t.Parallel()

	snap := New(&fakeRunner{}, fakeClock{}).LoadAll(context.Background(), nil)
	require.Empty(t, snap.Datasets)
	require.Equal(t, "run-42", snap.RunID)
}
