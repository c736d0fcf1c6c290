package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves a URL and returns the page body plus metadata. Fetches are
// read-only GETs and must be safe to repeat for the same URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Extractor parses a fetched page into product records and outbound links.
// An empty result is normal, not an error; Extract returns an error only for
// pages it cannot parse at all.
type Extractor interface {
	Extract(page Page) (records []Product, links []string, err error)
}

// Sink receives extracted products for persistence. Implementations must
// serialize internally; the Engine may emit from multiple workers.
type Sink interface {
	Emit(ctx context.Context, record Product) error
	Close(ctx context.Context) error
}

// RetryPolicy decides whether a failed fetch is worth repeating and how long
// to back off between attempts.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}
