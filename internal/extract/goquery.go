// Package extract locates product records and outbound links inside fetched
// HTML pages. One Extractor implementation exists per target-site layout; the
// traversal engine only sees the crawler.Extractor interface.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pricefeed/webcrawler/internal/crawler"
)

// Default selectors target Walmart-style search result markup. Sites change
// their HTML; override them via configuration rather than editing code.
const (
	DefaultProductSelector = "div[data-item-id], div[data-automation-id='productTile']"
	DefaultNameSelector    = "[data-automation-id='product-title'], a[aria-label], div[data-automation-id='product-title-link']"
	DefaultPriceSelector   = "[data-automation-id='product-price'], span[aria-hidden='true'], div.price-main span"
)

// Config holds the CSS selectors that describe one site layout.
type Config struct {
	ProductSelector string
	NameSelector    string
	PriceSelector   string
}

// GoqueryExtractor parses pages with goquery and applies configured selectors.
type GoqueryExtractor struct {
	cfg    Config
	logger *zap.Logger
}

// NewGoqueryExtractor builds an extractor, filling empty selectors with the
// defaults.
func NewGoqueryExtractor(cfg Config, logger *zap.Logger) *GoqueryExtractor {
	if cfg.ProductSelector == "" {
		cfg.ProductSelector = DefaultProductSelector
	}
	if cfg.NameSelector == "" {
		cfg.NameSelector = DefaultNameSelector
	}
	if cfg.PriceSelector == "" {
		cfg.PriceSelector = DefaultPriceSelector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoqueryExtractor{cfg: cfg, logger: logger}
}

// Extract parses the page body into product records and absolute outbound
// links. A page with no product tiles is a normal empty result, not an error;
// only an unparseable document fails.
func (e *GoqueryExtractor) Extract(page crawler.Page) ([]crawler.Product, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse page %s: %w", page.URL, err)
	}

	base := e.baseURL(page)
	records := e.extractProducts(doc, base, page)
	links := e.extractLinks(doc, base)
	return records, links, nil
}

func (e *GoqueryExtractor) baseURL(page crawler.Page) *url.URL {
	for _, raw := range []string{page.FinalURL, page.URL} {
		if raw == "" {
			continue
		}
		if base, err := url.Parse(raw); err == nil {
			return base
		}
	}
	return nil
}

func (e *GoqueryExtractor) extractProducts(doc *goquery.Document, base *url.URL, page crawler.Page) []crawler.Product {
	var records []crawler.Product
	doc.Find(e.cfg.ProductSelector).Each(func(_ int, tile *goquery.Selection) {
		name := strings.TrimSpace(tile.Find(e.cfg.NameSelector).First().Text())
		price := strings.TrimSpace(tile.Find(e.cfg.PriceSelector).First().Text())
		// A tile missing either field is an ad slot or partial markup.
		if name == "" || price == "" {
			return
		}

		link := page.FinalURL
		if link == "" {
			link = page.URL
		}
		if href, ok := tile.Find("a[href]").First().Attr("href"); ok {
			if resolved := resolveHref(base, href); resolved != "" {
				link = resolved
			}
		}

		records = append(records, crawler.Product{Name: name, Price: price, Link: link})
	})
	return records
}

func (e *GoqueryExtractor) extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if resolved := resolveHref(base, href); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links
}

// resolveHref turns href into an absolute URL string, or "" when it cannot be
// resolved. Scope and scheme filtering belong to the Frontier, not here.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	return ref.String()
}
