package crawler

import (
	"fmt"
	"time"
)

// Config holds the settings for one crawl run. It is decoupled from Viper so
// the engine can be constructed and tested without the configuration layer.
type Config struct {
	Seed              string
	RootDomain        string
	IncludeSubdomains bool
	MaxDepth          int
	MaxPages          int
	Concurrency       int
	UserAgent         string
	RequestTimeout    time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	RatePerDomain     int
	QueryPolicy       QueryPolicy
	DepthPolicy       DepthPolicy
	// DrainGrace bounds how long canceled in-flight fetches may run before
	// the engine stops waiting for them.
	DrainGrace time.Duration
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Seed == "" {
		return fmt.Errorf("crawler.seed must be set")
	}
	if c.RootDomain == "" {
		return fmt.Errorf("crawler.root_domain must be set")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	switch c.QueryPolicy {
	case QuerySort, QueryStrip:
	default:
		return fmt.Errorf("crawler.query_policy must be %q or %q", QuerySort, QueryStrip)
	}
	switch c.DepthPolicy {
	case DepthBoundsDiscovery, DepthBoundsDispatch:
	default:
		return fmt.Errorf("crawler.depth_policy must be %q or %q", DepthBoundsDiscovery, DepthBoundsDispatch)
	}
	return nil
}
