package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks pages fetched and handed to the extractor.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_pages_fetched_total",
		Help: "The total number of pages successfully fetched.",
	})
	// PageFailures tracks pages given up on after retries were exhausted.
	PageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_page_failures_total",
		Help: "The total number of pages that failed after all retry attempts.",
	})
	// FetchRetries tracks individual retry attempts.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fetch_retries_total",
		Help: "The total number of fetch retry attempts.",
	})
	// ProductsExtracted tracks records emitted to the sink.
	ProductsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_products_extracted_total",
		Help: "The total number of product records emitted to the sink.",
	})
	// FrontierAccepted tracks links accepted into the frontier queue.
	FrontierAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_frontier_accepted_total",
		Help: "The total number of links accepted into the frontier.",
	})
	// FrontierRejections tracks dropped offers partitioned by reason.
	FrontierRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_frontier_rejections_total",
		Help: "The total number of rejected frontier offers by reason.",
	}, []string{"reason"})
)
