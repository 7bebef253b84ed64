// Package throttle rate-limits source fetches per host.
package throttle

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
)

// Config holds the per-host token bucket settings. A non-positive rate disables limiting.
type Config struct {
	RatePerSecond float64
	Burst         int
}

// Limiter hands out one token bucket per host.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until the host of rawURL has a token or ctx ends.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait for %s: %w", dashboard.ErrTransport, host, err)
	}
	return nil
}

// Fetcher waits on the Limiter before delegating to the wrapped fetcher.
type Fetcher struct {
	next    dashboard.Fetcher
	limiter *Limiter
}

// Wrap throttles next with limiter.
func Wrap(next dashboard.Fetcher, limiter *Limiter) *Fetcher {
	return &Fetcher{next: next, limiter: limiter}
}

// Fetch implements dashboard.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, request dashboard.FetchRequest) (dashboard.FetchResponse, error) {
	if err := f.limiter.Wait(ctx, request.URL); err != nil {
		return dashboard.FetchResponse{}, err
	}
	return f.next.Fetch(ctx, request)
}
