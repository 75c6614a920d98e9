package docextract

import (
	"context"
	"time"
)

// Page represents a crawled documentation page. Content holds the cleaned
// Markdown rendering produced by the crawler's content pipeline; raw HTML
// never travels past the crawler.
type Page struct {
	URL       string
	Title     string
	Content   string // cleaned Markdown
	Depth     int    // seed is depth 0
	FetchedAt time.Time
}

// CrawlConfig bounds a crawl. It is built once per run and immutable
// thereafter.
type CrawlConfig struct {
	MaxDepth        int
	MaxPages        int
	IncludeExternal bool
	Keywords        []string
	KeywordWeight   float64
}

// DefaultCrawlConfig returns the standard crawl bounds.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxDepth:      2,
		MaxPages:      25,
		KeywordWeight: 0.7,
	}
}

// Validate returns an error if the configuration is invalid.
func (c CrawlConfig) Validate() error {
	if c.MaxDepth < 1 {
		return Errorf(EINVALID, "max depth must be at least 1")
	}
	if c.MaxPages < 1 {
		return Errorf(EINVALID, "max pages must be at least 1")
	}
	if c.KeywordWeight < 0 || c.KeywordWeight > 1 {
		return Errorf(EINVALID, "keyword weight must be between 0 and 1")
	}
	return nil
}

// VisitFunc receives pages as the crawler yields them. Returning an error
// stops the crawl.
type VisitFunc func(page *Page) error

// Crawler produces a finite sequence of pages starting from a seed URL.
// Pages are yielded in best-first order; the sequence length never exceeds
// CrawlConfig.MaxPages.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string, cfg CrawlConfig, visit VisitFunc) error
}

// Fetcher retrieves HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered
// content.
type Fetcher interface {
	// Fetch retrieves the HTML for the URL.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases fetcher resources.
	Close() error
}
