package dashboard

import (
	"context"
	"time"
)

// Fetcher returns the raw bytes of a source.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RenderDetector decides whether a static response should be re-fetched through a browser.
type RenderDetector interface {
	ShouldPromote(resp FetchResponse, marker string) bool
}

// Publisher pushes refresh notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests of fetched bodies.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces refresh run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
