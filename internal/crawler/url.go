package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// QueryPolicy controls how query parameters factor into a URL's canonical
// identity. Sorting keeps pagination-style links distinct while making
// parameter order irrelevant; stripping treats every query variant of a path
// as the same page.
type QueryPolicy string

// Supported query policies.
const (
	QuerySort  QueryPolicy = "sort"
	QueryStrip QueryPolicy = "strip"
)

// NormalizeError reports a link that could not be canonicalized. These are
// expected during a crawl (malformed hrefs, mailto:, javascript:) and are
// dropped rather than propagated.
type NormalizeError struct {
	Raw    string
	Reason string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize %q: %s", e.Raw, e.Reason)
}

// Normalize canonicalizes a raw URL reference into a comparable dedup key.
// A relative reference is resolved against base (which may be nil when raw is
// known to be absolute). The scheme and host are lowercased, default ports and
// the fragment are stripped, an empty path becomes "/", and the query is
// re-encoded per policy. Only http and https are supported.
//
// Normalize is pure and deterministic; dedup correctness depends on it.
func Normalize(raw string, base *url.URL, policy QueryPolicy) (CanonicalURL, error) {
	u, err := normalizeURL(raw, base, policy)
	if err != nil {
		return "", err
	}
	return CanonicalURL(u.String()), nil
}

func normalizeURL(raw string, base *url.URL, policy QueryPolicy) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &NormalizeError{Raw: raw, Reason: err.Error()}
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &NormalizeError{Raw: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &NormalizeError{Raw: raw, Reason: "missing host"}
	}
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
	}

	switch policy {
	case QueryStrip:
		u.RawQuery = ""
	default:
		if u.RawQuery != "" {
			u.RawQuery = u.Query().Encode()
		}
	}

	return u, nil
}
