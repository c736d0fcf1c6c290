package crawler

import (
	"fmt"
	"net/http"
	"time"
)

// CanonicalURL is the normalized, comparison-stable identity of a URL. Two raw
// strings that denote the same resource normalize to equal CanonicalURLs; it
// is the sole dedup key used by the Frontier.
type CanonicalURL string

// Entry is one unit of pending work in the Frontier. Depth is the BFS distance
// from the seed (seed = 0). Raw preserves the original absolute URL for the
// fetch; Canonical is the dedup identity.
type Entry struct {
	Canonical CanonicalURL
	Raw       string
	Depth     int
}

// Page is the raw result of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentLength reports the body size in bytes.
func (p Page) ContentLength() int64 {
	return int64(len(p.Body))
}

// Product is one extracted record. Ownership transfers to the Sink on emit.
type Product struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Link  string `json:"link"`
}

// Summary reports the outcome of one crawl run.
type Summary struct {
	PagesFetched      int64
	PagesFailed       int64
	ProductsExtracted int64
	LinksOffered      int64
	LinksRejected     int64
	Duration          time.Duration
}

// FetchError describes an HTTP-level fetch failure. Transport errors
// (timeouts, connection resets) are returned as-is by the Fetcher; FetchError
// covers responses that arrived but carried an error status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
