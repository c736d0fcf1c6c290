package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) *CollyFetcher {
	t.Helper()
	fetcher, err := NewCollyFetcher(Config{
		Concurrency:    2,
		UserAgent:      "pricefeed-bot/test",
		RequestTimeout: 5 * time.Second,
		RatePerDomain:  100,
	}, nil)
	require.NoError(t, err)
	return fetcher
}

func TestCollyFetcherFetchesPage(t *testing.T) {
	t.Parallel()

	const body = `<html><body><h1>Catalog</h1></body></html>`
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t)
	page, err := fetcher.Fetch(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)

	require.Equal(t, srv.URL+"/catalog", page.URL)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, []byte(body), page.Body)
	require.Equal(t, int64(len(body)), page.ContentLength())
	require.Equal(t, "text/html", page.Headers.Get("Content-Type"))
	require.Equal(t, "pricefeed-bot/test", gotUserAgent)
}

func TestCollyFetcherReportsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), srv.URL+"/down")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	require.Equal(t, srv.URL+"/down", fetchErr.URL)
}

func TestCollyFetcherConnectionFailurePassesThrough(t *testing.T) {
	t.Parallel()

	// A server that is already closed produces a transport-level error, not
	// a FetchError.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	fetcher := newTestFetcher(t)
	_, err := fetcher.Fetch(context.Background(), url)
	require.Error(t, err)

	var fetchErr *FetchError
	require.False(t, errors.As(err, &fetchErr))
}

func TestCollyFetcherRecordsRedirectTarget(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved here"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := newTestFetcher(t)
	page, err := fetcher.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)

	require.Equal(t, srv.URL+"/old", page.URL)
	require.Equal(t, srv.URL+"/new", page.FinalURL)
	require.Equal(t, http.StatusOK, page.StatusCode)
}
